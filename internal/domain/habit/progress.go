package habit

import "github.com/rpggio/routine/internal/calendar"

// Outcome describes the side effects of a progress change.
type Outcome struct {
	// FirstToday is set when the change bumped the lifetime counter.
	FirstToday bool
}

// RecordCompletion adds one rep for today. The lifetime counter grows only on
// the first rep of a day; later reps only fill the daily quota. It returns
// ErrMaxCompletionsReached when the daily target is already met. The habit
// must already be reset for today (see ResetForNewDay).
func RecordCompletion(h Habit, today calendar.Date) (Habit, Outcome, error) {
	switch h.Kind {
	case KindCounter:
		if h.CounterCurrent >= h.CounterTotal {
			return h, Outcome{}, ErrMaxCompletionsReached
		}
		h.CounterCurrent++
		h.CompletionsToday = h.CounterCurrent
		h.CompletionsPerDay = h.CounterTotal
	case KindTally:
		h.CompletionsToday++
	default:
		if h.CompletionsToday >= h.CompletionsPerDay {
			return h, Outcome{}, ErrMaxCompletionsReached
		}
		h.CompletionsToday++
	}

	var out Outcome
	if !h.CompletedOn(today) {
		h.TotalCompletions++
		h.LastCompletedDate = calendar.Ptr(today)
		out.FirstToday = true
	}
	return h, out, nil
}

// RemoveCompletion undoes today's engagement: the lifetime counter drops by
// one and daily progress returns to zero.
func RemoveCompletion(h Habit, today calendar.Date) (Habit, error) {
	if !h.CompletedOn(today) {
		return h, ErrNoCompletionToRemove
	}
	if h.TotalCompletions > 0 {
		h.TotalCompletions--
	}
	h.CompletionsToday = 0
	if h.Kind == KindCounter {
		h.CounterCurrent = 0
	}
	h.LastCompletedDate = nil
	return h, nil
}

// ResetForNewDay clears daily progress once per calendar day, tracked by
// LastResetDate. It reports whether anything was reset; a second call on the
// same day is a no-op.
func ResetForNewDay(h Habit, today calendar.Date) (Habit, bool) {
	changed, marker := calendar.HasDayChanged(h.LastResetDate, today)
	if !changed {
		return h, false
	}
	h.CompletionsToday = 0
	if h.Kind == KindCounter {
		h.CounterCurrent = 0
		h.CompletionsPerDay = h.CounterTotal
	}
	h.LastResetDate = calendar.Ptr(marker)
	return h, true
}

package habit

import (
	"fmt"
	"time"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
)

// Kind selects how daily progress is counted.
type Kind string

const (
	// KindStandard completes after CompletionsPerDay reps.
	KindStandard Kind = "standard"
	// KindCounter tracks a current/total pair, shown as "Title (3/8)".
	KindCounter Kind = "counter"
	// KindTally only accumulates and is never complete.
	KindTally Kind = "tally"
)

// Habit is a daily routine with per-day progress and a lifetime level.
type Habit struct {
	ID                string          `json:"id"`
	UserID            int64           `json:"user_id"`
	Title             string          `json:"title"`
	Kind              Kind            `json:"kind"`
	Frequency         recurrence.Rule `json:"frequency"`
	CompletionsPerDay int             `json:"completions_per_day"`
	CompletionsToday  int             `json:"completions_today"`
	TotalCompletions  int             `json:"total_completions"`
	CounterCurrent    int             `json:"counter_current,omitempty"`
	CounterTotal      int             `json:"counter_total,omitempty"`
	LastCompletedDate *calendar.Date  `json:"last_completed_date,omitempty"`
	LastResetDate     *calendar.Date  `json:"last_reset_date,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DisplayTitle renders the title, appending "(current/total)" for counters.
func (h Habit) DisplayTitle() string {
	if h.Kind != KindCounter {
		return h.Title
	}
	return fmt.Sprintf("%s (%d/%d)", h.Title, h.CounterCurrent, h.CounterTotal)
}

// Level is the lifetime number of days the habit was engaged.
func (h Habit) Level() int {
	return h.TotalCompletions
}

// DailyTarget is the number of reps that completes the day; 0 for tallies.
func (h Habit) DailyTarget() int {
	switch h.Kind {
	case KindCounter:
		return h.CounterTotal
	case KindTally:
		return 0
	default:
		return h.CompletionsPerDay
	}
}

// IsComplete reports whether today's target is met. Tallies never are.
func (h Habit) IsComplete() bool {
	switch h.Kind {
	case KindTally:
		return false
	case KindCounter:
		return h.CounterTotal > 0 && h.CounterCurrent >= h.CounterTotal
	default:
		return h.CompletionsPerDay > 0 && h.CompletionsToday >= h.CompletionsPerDay
	}
}

// CompletedOn reports whether the lifetime counter was bumped on day.
func (h Habit) CompletedOn(day calendar.Date) bool {
	return h.LastCompletedDate != nil && h.LastCompletedDate.Equal(day)
}

// Snapshot is the progress view handed to clients.
type Snapshot struct {
	CompletionsToday  int  `json:"completions_today"`
	CompletionsPerDay int  `json:"completions_per_day"`
	TotalCompletions  int  `json:"total_completions"`
	Level             int  `json:"level"`
	IsComplete        bool `json:"is_complete"`
}

// Snapshot summarizes today's progress.
func (h Habit) Snapshot() Snapshot {
	return Snapshot{
		CompletionsToday:  h.CompletionsToday,
		CompletionsPerDay: h.CompletionsPerDay,
		TotalCompletions:  h.TotalCompletions,
		Level:             h.Level(),
		IsComplete:        h.IsComplete(),
	}
}

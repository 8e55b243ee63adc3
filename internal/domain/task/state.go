package task

import "github.com/rpggio/routine/internal/calendar"

// State is the derived lifecycle state of a task on a given day. It is never
// stored.
type State string

const (
	StateActive                   State = "ACTIVE"
	StateActiveOverdue            State = "ACTIVE_OVERDUE"
	StateComplete                 State = "COMPLETE"
	StateCompleteOverdueSuccessor State = "COMPLETE_WITH_OVERDUE_SUCCESSOR"
)

// DeriveState computes the state of t as seen on today.
func DeriveState(t Task, today calendar.Date) State {
	if !t.IsComplete {
		if IsOverdue(t, today) {
			return StateActiveOverdue
		}
		return StateActive
	}
	if t.IsRecurring() && t.NextOccurrenceDate != nil && t.NextOccurrenceDate.Before(today) {
		return StateCompleteOverdueSuccessor
	}
	return StateComplete
}

// IsOverdue reports whether an incomplete task's due date has passed. Tasks
// without a due date are never overdue.
func IsOverdue(t Task, today calendar.Date) bool {
	return !t.IsComplete && t.DueDate != nil && t.DueDate.Before(today)
}

// PresentedActive reports whether clients should offer the completion action.
// A completed task whose chain has fallen behind is offered again.
func (s State) PresentedActive() bool {
	return s != StateComplete
}

// View pairs a task with its derived state.
type View struct {
	Task
	State           State `json:"state"`
	PresentedActive bool  `json:"presented_active"`
}

// NewView derives the state of t on today.
func NewView(t Task, today calendar.Date) View {
	st := DeriveState(t, today)
	return View{Task: t, State: st, PresentedActive: st.PresentedActive()}
}

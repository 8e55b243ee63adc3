package task

import (
	"time"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
)

// Task is a to-do item, optionally repeating. A completed recurring task
// keeps a pointer to the newest occurrence of its chain.
type Task struct {
	ID                 string          `json:"id"`
	UserID             int64           `json:"user_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	DueDate            *calendar.Date  `json:"due_date,omitempty"`
	Recurrence         recurrence.Rule `json:"recurrence"`
	IsComplete         bool            `json:"is_complete"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	NextOccurrenceDate *calendar.Date  `json:"next_occurrence_date,omitempty"`
	SuccessorID        *string         `json:"successor_id,omitempty"`
	PredecessorID      *string         `json:"predecessor_id,omitempty"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// IsRecurring reports whether completing the task should spawn another.
func (t Task) IsRecurring() bool {
	return t.Recurrence.Repeats()
}

// HasSuccessor reports whether the next occurrence was already created.
func (t Task) HasSuccessor() bool {
	return t.SuccessorID != nil && *t.SuccessorID != ""
}

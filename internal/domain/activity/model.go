package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeTaskCreated       ActivityType = "task_created"
	TypeTaskCompleted     ActivityType = "task_completed"
	TypeTaskReopened      ActivityType = "task_reopened"
	TypeSuccessorSpawned  ActivityType = "successor_spawned"
	TypeMissingAnchorDate ActivityType = "missing_anchor_date"
	TypeHabitCreated      ActivityType = "habit_created"
	TypeHabitCompleted    ActivityType = "habit_completed"
	TypeHabitUncompleted  ActivityType = "habit_completion_removed"
	TypeHabitReset        ActivityType = "habit_reset"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	TaskID       *string      `json:"task_id,omitempty"`
	HabitID      *string      `json:"habit_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}

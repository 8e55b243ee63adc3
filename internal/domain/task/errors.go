package task

import (
	"errors"

	"github.com/rpggio/routine/internal/domain/recurrence"
)

var (
	// ErrTaskNotFound indicates the task doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errors.New("invalid task input")
	// ErrInvalidRecurrenceRule indicates an unknown kind or an interval below 1.
	ErrInvalidRecurrenceRule = recurrence.ErrInvalidRule
	// ErrMissingAnchorDate indicates a recurring task has no due date to
	// compute its next occurrence from. Completion still succeeds.
	ErrMissingAnchorDate = errors.New("recurring task has no due date")
	// ErrSuccessorCreationFailed indicates the next occurrence could not be
	// stored; the completion was rolled back.
	ErrSuccessorCreationFailed = errors.New("creating next occurrence failed")
	// ErrConflict indicates the task changed underneath the request.
	ErrConflict = errors.New("task modified concurrently")
)

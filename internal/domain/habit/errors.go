package habit

import "errors"

var (
	// ErrHabitNotFound indicates the habit doesn't exist.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidInput indicates invalid habit input.
	ErrInvalidInput = errors.New("invalid habit input")
	// ErrMaxCompletionsReached indicates today's target is already met.
	ErrMaxCompletionsReached = errors.New("max completions reached for today")
	// ErrNoCompletionToRemove indicates nothing was completed today.
	ErrNoCompletionToRemove = errors.New("no completion recorded today")
	// ErrConflict indicates the habit changed underneath the request.
	ErrConflict = errors.New("habit modified concurrently")
)

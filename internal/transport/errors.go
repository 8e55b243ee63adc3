package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
)

// APIError is the body of every failed response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to an HTTP status and error body. Unknown
// errors become a generic internal error.
func MapError(err error) (int, *APIError) {
	switch {
	case err == nil:
		return http.StatusOK, nil
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound, &APIError{Code: "TASK_NOT_FOUND", Message: "task not found", RecoveryHint: "Check the task ID"}
	case errors.Is(err, habit.ErrHabitNotFound):
		return http.StatusNotFound, &APIError{Code: "HABIT_NOT_FOUND", Message: "habit not found", RecoveryHint: "Check the habit ID"}
	case errors.Is(err, recurrence.ErrInvalidRule):
		return http.StatusBadRequest, &APIError{Code: "INVALID_RECURRENCE", Message: err.Error(), RecoveryHint: "Use none, daily, weekly, monthly or yearly with an interval of at least 1"}
	case errors.Is(err, task.ErrInvalidInput), errors.Is(err, habit.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, habit.ErrMaxCompletionsReached):
		return http.StatusConflict, &APIError{Code: "MAX_COMPLETIONS_REACHED", Message: "today's target is already met", RecoveryHint: "Try again tomorrow"}
	case errors.Is(err, habit.ErrNoCompletionToRemove):
		return http.StatusConflict, &APIError{Code: "NO_COMPLETION_TO_REMOVE", Message: "nothing was completed today"}
	case errors.Is(err, task.ErrConflict), errors.Is(err, habit.ErrConflict):
		return http.StatusConflict, &APIError{Code: "CONFLICT", Message: "modified by another request", RecoveryHint: "Reload and retry"}
	case errors.Is(err, task.ErrSuccessorCreationFailed):
		return http.StatusInternalServerError, &APIError{Code: "SUCCESSOR_CREATION_FAILED", Message: "could not create the next occurrence; the task was not completed", RecoveryHint: "Retry the completion"}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, &APIError{Code: "UNAUTHORIZED", Message: "invalid or missing credentials"}
	default:
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}

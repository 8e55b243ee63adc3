package task

import (
	"context"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
)

// Repository provides persistence for tasks.
type Repository interface {
	Create(ctx context.Context, userID int64, t *Task) error
	Get(ctx context.Context, userID int64, id string) (*Task, error)
	Update(ctx context.Context, userID int64, t *Task, expectedVersion int64) error
	Delete(ctx context.Context, userID int64, id string) error
	List(ctx context.Context, userID int64, opts ListOptions) ([]Task, error)
	// RetargetSuccessor moves every task pointing at fromID to the new chain head.
	RetargetSuccessor(ctx context.Context, userID int64, fromID, toID string, next calendar.Date) (int64, error)
	// ClaimRequest records a request key, returning false if it was seen before.
	ClaimRequest(ctx context.Context, userID int64, key, taskID string) (bool, error)
}

// Store is a Repository with a unit-of-work boundary. The callback receives a
// Repository bound to the transaction; returning an error rolls it back.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// ActivityRepository logs task activities.
type ActivityRepository interface {
	Log(ctx context.Context, userID int64, entry *activity.ActivityEntry) error
}

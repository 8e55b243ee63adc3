package habit

import (
	"context"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
)

// Repository provides persistence for habits.
type Repository interface {
	Create(ctx context.Context, userID int64, h *Habit) error
	Get(ctx context.Context, userID int64, id string) (*Habit, error)
	Update(ctx context.Context, userID int64, h *Habit, expectedVersion int64) error
	Delete(ctx context.Context, userID int64, id string) error
	List(ctx context.Context, userID int64) ([]Habit, error)
	// ClaimDay records the day's completion event, returning false if one exists.
	ClaimDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error)
	// ReleaseDay deletes the day's completion event, returning false if none existed.
	ReleaseDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error)
}

// Store is a Repository with a unit-of-work boundary.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// ActivityRepository logs habit activities.
type ActivityRepository interface {
	Log(ctx context.Context, userID int64, entry *activity.ActivityEntry) error
}

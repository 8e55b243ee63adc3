package activity

import "context"

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, userID int64, entry *ActivityEntry) error
	List(ctx context.Context, userID int64, opts ListActivityOptions) ([]ActivityEntry, error)
}

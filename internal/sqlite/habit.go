package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/repository"
)

// HabitRepository implements habit.Store for SQLite
type HabitRepository struct {
	db *DB
	q  querier
}

// NewHabitRepository creates a new HabitRepository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db, q: db}
}

// WithinTx runs fn against a repository bound to one transaction.
func (r *HabitRepository) WithinTx(ctx context.Context, fn func(repo habit.Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	return r.db.withinTx(ctx, func(tx *sql.Tx) error {
		return fn(&HabitRepository{db: r.db, q: tx})
	})
}

const habitColumns = `
	id, user_id, title, kind, frequency_type, frequency_interval,
	completions_per_day, completions_today, total_completions,
	counter_current, counter_total, last_completed_date, last_reset_date,
	version, created_at, updated_at`

// Create inserts a new habit
func (r *HabitRepository) Create(ctx context.Context, userID int64, h *habit.Habit) error {
	query := `INSERT INTO habits (` + habitColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		h.ID,
		userID,
		h.Title,
		string(h.Kind),
		string(h.Frequency.Kind),
		h.Frequency.Interval,
		h.CompletionsPerDay,
		h.CompletionsToday,
		h.TotalCompletions,
		h.CounterCurrent,
		h.CounterTotal,
		dateArg(h.LastCompletedDate),
		dateArg(h.LastResetDate),
		h.Version,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create habit: %w", err)
	}

	h.UserID = userID
	return nil
}

// Get retrieves a habit by ID
func (r *HabitRepository) Get(ctx context.Context, userID int64, id string) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND user_id = ?`

	h, err := scanHabit(r.q.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

// Update updates a habit with optimistic concurrency control
func (r *HabitRepository) Update(ctx context.Context, userID int64, h *habit.Habit, expectedVersion int64) error {
	query := `
		UPDATE habits
		SET title = ?, kind = ?, frequency_type = ?, frequency_interval = ?,
		    completions_per_day = ?, completions_today = ?, total_completions = ?,
		    counter_current = ?, counter_total = ?, last_completed_date = ?, last_reset_date = ?,
		    version = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND version = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		h.Title,
		string(h.Kind),
		string(h.Frequency.Kind),
		h.Frequency.Interval,
		h.CompletionsPerDay,
		h.CompletionsToday,
		h.TotalCompletions,
		h.CounterCurrent,
		h.CounterTotal,
		dateArg(h.LastCompletedDate),
		dateArg(h.LastResetDate),
		h.Version,
		h.UpdatedAt,
		h.ID,
		userID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM habits WHERE id = ? AND user_id = ?)`, h.ID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check habit existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// Delete deletes a habit; its completion days cascade.
func (r *HabitRepository) Delete(ctx context.Context, userID int64, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns all habits of a user in creation order.
func (r *HabitRepository) List(ctx context.Context, userID int64) ([]habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ? ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habit rows: %w", err)
	}
	return habits, nil
}

// ClaimDay inserts the habit's completion row for day. It reports false when
// the row already exists.
func (r *HabitRepository) ClaimDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO habit_completions (habit_id, user_id, day) VALUES (?, ?, ?)`,
		habitID, userID, day.String(),
	)
	switch {
	case isUniqueViolation(err):
		return false, nil
	case isForeignKeyViolation(err):
		return false, repository.ErrNotFound
	case err != nil:
		return false, fmt.Errorf("failed to claim completion day: %w", err)
	}
	return true, nil
}

// ReleaseDay removes the habit's completion row for day.
func (r *HabitRepository) ReleaseDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM habit_completions WHERE habit_id = ? AND user_id = ? AND day = ?`,
		habitID, userID, day.String(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to release completion day: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanHabit(row rowScanner) (*habit.Habit, error) {
	var (
		h                     habit.Habit
		kind, freqKind        string
		lastCompleted, marker sql.NullString
	)
	if err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Title,
		&kind,
		&freqKind,
		&h.Frequency.Interval,
		&h.CompletionsPerDay,
		&h.CompletionsToday,
		&h.TotalCompletions,
		&h.CounterCurrent,
		&h.CounterTotal,
		&lastCompleted,
		&marker,
		&h.Version,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	h.Kind = habit.Kind(kind)
	h.Frequency.Kind = recurrence.Kind(freqKind)
	if h.LastCompletedDate, err = scanDate(lastCompleted); err != nil {
		return nil, err
	}
	if h.LastResetDate, err = scanDate(marker); err != nil {
		return nil, err
	}
	return &h, nil
}

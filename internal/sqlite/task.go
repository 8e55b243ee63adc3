package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/repository"
)

// TaskRepository implements task.Store for SQLite
type TaskRepository struct {
	db *DB
	q  querier
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, q: db}
}

// WithinTx runs fn against a repository bound to one transaction.
func (r *TaskRepository) WithinTx(ctx context.Context, fn func(repo task.Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	return r.db.withinTx(ctx, func(tx *sql.Tx) error {
		return fn(&TaskRepository{db: r.db, q: tx})
	})
}

const taskColumns = `
	id, user_id, title, description, due_date, recurrence_type, recurrence_interval,
	is_complete, completed_at, next_occurrence_date, successor_id, predecessor_id,
	version, created_at, updated_at`

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, userID int64, t *task.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		t.ID,
		userID,
		t.Title,
		t.Description,
		dateArg(t.DueDate),
		string(t.Recurrence.Kind),
		t.Recurrence.Interval,
		t.IsComplete,
		t.CompletedAt,
		dateArg(t.NextOccurrenceDate),
		t.SuccessorID,
		t.PredecessorID,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	t.UserID = userID
	return nil
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(ctx context.Context, userID int64, id string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`

	t, err := scanTask(r.q.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// Update updates a task with optimistic concurrency control
func (r *TaskRepository) Update(ctx context.Context, userID int64, t *task.Task, expectedVersion int64) error {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, recurrence_type = ?, recurrence_interval = ?,
		    is_complete = ?, completed_at = ?, next_occurrence_date = ?, successor_id = ?,
		    version = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND version = ?
	`

	result, err := r.q.ExecContext(ctx, query,
		t.Title,
		t.Description,
		dateArg(t.DueDate),
		string(t.Recurrence.Kind),
		t.Recurrence.Interval,
		t.IsComplete,
		t.CompletedAt,
		dateArg(t.NextOccurrenceDate),
		t.SuccessorID,
		t.Version,
		t.UpdatedAt,
		t.ID,
		userID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ? AND user_id = ?)`, t.ID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check task existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// Delete deletes a task. Tasks that pointed at it as their successor lose
// the pointer so a later completion can spawn a fresh occurrence.
func (r *TaskRepository) Delete(ctx context.Context, userID int64, id string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE tasks
		SET successor_id = NULL, next_occurrence_date = NULL, version = version + 1
		WHERE successor_id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to detach predecessors: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM task_requests WHERE task_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to delete request keys: %w", err)
	}

	result, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
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

// List returns tasks matching the given options, soonest due first.
func (r *TaskRepository) List(ctx context.Context, userID int64, opts task.ListOptions) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	conditions := []string{}

	today := opts.Today.String()
	switch opts.Status {
	case task.StatusPending:
		conditions = append(conditions, "is_complete = 0")
	case task.StatusDone:
		conditions = append(conditions, "is_complete = 1")
	case task.StatusOverdue:
		conditions = append(conditions, "is_complete = 0", "due_date IS NOT NULL", "due_date < ?")
		args = append(args, today)
	case task.StatusDueToday:
		conditions = append(conditions, "is_complete = 0", "due_date = ?")
		args = append(args, today)
	case task.StatusUpcoming:
		conditions = append(conditions, "is_complete = 0", "due_date > ?")
		args = append(args, today)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date IS NULL, due_date, created_at, id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// RetargetSuccessor points every task whose successor is fromID at toID.
func (r *TaskRepository) RetargetSuccessor(ctx context.Context, userID int64, fromID, toID string, next calendar.Date) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE tasks
		SET successor_id = ?, next_occurrence_date = ?, version = version + 1
		WHERE successor_id = ? AND user_id = ?
	`, toID, next.String(), fromID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to retarget successor: %w", err)
	}
	return result.RowsAffected()
}

// ClaimRequest stores a completion request key. It reports false when the
// key was already claimed.
func (r *TaskRepository) ClaimRequest(ctx context.Context, userID int64, key, taskID string) (bool, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO task_requests (user_id, request_key, task_id) VALUES (?, ?, ?)`,
		userID, key, taskID,
	)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim request: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                        task.Task
		dueDate, nextDate        sql.NullString
		recurrenceKind           string
		completedAt              sql.NullTime
		successorID, predecessor sql.NullString
	)
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&dueDate,
		&recurrenceKind,
		&t.Recurrence.Interval,
		&t.IsComplete,
		&completedAt,
		&nextDate,
		&successorID,
		&predecessor,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	t.Recurrence.Kind = recurrence.Kind(recurrenceKind)
	if t.DueDate, err = scanDate(dueDate); err != nil {
		return nil, err
	}
	if t.NextOccurrenceDate, err = scanDate(nextDate); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	t.SuccessorID = nullString(successorID)
	t.PredecessorID = nullString(predecessor)
	return &t, nil
}

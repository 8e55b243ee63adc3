package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTask(id, title string, due string) *task.Task {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t := &task.Task{
		ID:         id,
		Title:      title,
		Recurrence: recurrence.None,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if due != "" {
		t.DueDate = calendar.Ptr(calendar.MustParse(due))
	}
	return t
}

func TestTaskRepository_CreateGetUpdate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	tk := newTask("t1", "Water plants", "2024-03-01")
	tk.Recurrence = recurrence.Rule{Kind: recurrence.KindWeekly, Interval: 2}
	require.NoError(t, repo.Create(ctx, 1, tk))

	got, err := repo.Get(ctx, 1, "t1")
	require.NoError(t, err)
	require.Equal(t, "Water plants", got.Title)
	require.Equal(t, calendar.MustParse("2024-03-01"), *got.DueDate)
	require.Equal(t, recurrence.KindWeekly, got.Recurrence.Kind)
	require.Equal(t, 2, got.Recurrence.Interval)
	require.Nil(t, got.NextOccurrenceDate)
	require.Nil(t, got.CompletedAt)

	now := time.Now().UTC()
	got.IsComplete = true
	got.CompletedAt = &now
	got.NextOccurrenceDate = calendar.Ptr(calendar.MustParse("2024-03-15"))
	got.Version = 2
	require.NoError(t, repo.Update(ctx, 1, got, 1))

	got.Title = "Conflict"
	got.Version = 3
	require.Equal(t, repository.ErrConflict, repo.Update(ctx, 1, got, 1))

	got.ID = "missing"
	require.Equal(t, repository.ErrNotFound, repo.Update(ctx, 1, got, 2))

	reloaded, err := repo.Get(ctx, 1, "t1")
	require.NoError(t, err)
	require.True(t, reloaded.IsComplete)
	require.NotNil(t, reloaded.CompletedAt)
	require.Equal(t, "2024-03-15", reloaded.NextOccurrenceDate.String())
	require.Equal(t, int64(2), reloaded.Version)
}

func TestTaskRepository_UserIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	require.NoError(t, repo.Create(ctx, 1, newTask("t1", "Mine", "")))

	_, err := repo.Get(ctx, 2, "t1")
	require.Equal(t, repository.ErrNotFound, err)
	require.Equal(t, repository.ErrNotFound, repo.Delete(ctx, 2, "t1"))
}

func TestTaskRepository_ListStatuses(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	require.NoError(t, repo.Create(ctx, 1, newTask("late", "Late", "2024-03-01")))
	require.NoError(t, repo.Create(ctx, 1, newTask("today", "Today", "2024-03-05")))
	require.NoError(t, repo.Create(ctx, 1, newTask("soon", "Soon", "2024-03-09")))
	require.NoError(t, repo.Create(ctx, 1, newTask("someday", "Someday", "")))
	done := newTask("done", "Done", "2024-02-01")
	done.IsComplete = true
	require.NoError(t, repo.Create(ctx, 1, done))

	today := calendar.MustParse("2024-03-05")
	ids := func(status task.Status) []string {
		list, err := repo.List(ctx, 1, task.ListOptions{Status: status, Today: today})
		require.NoError(t, err)
		out := []string{}
		for _, tk := range list {
			out = append(out, tk.ID)
		}
		return out
	}

	require.Equal(t, []string{"done", "late", "today", "soon", "someday"}, ids(task.StatusAll))
	require.Equal(t, []string{"late", "today", "soon", "someday"}, ids(task.StatusPending))
	require.Equal(t, []string{"done"}, ids(task.StatusDone))
	require.Equal(t, []string{"late"}, ids(task.StatusOverdue))
	require.Equal(t, []string{"today"}, ids(task.StatusDueToday))
	require.Equal(t, []string{"soon"}, ids(task.StatusUpcoming))

	page, err := repo.List(ctx, 1, task.ListOptions{Status: task.StatusAll, Today: today, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "late", page[0].ID)
}

func TestTaskRepository_WithinTxRollsBack(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	err := repo.WithinTx(ctx, func(tx task.Repository) error {
		require.NoError(t, tx.Create(ctx, 1, newTask("t1", "Rolled back", "")))
		return repository.ErrConflict
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Get(ctx, 1, "t1")
	require.Equal(t, repository.ErrNotFound, err)
}

func TestTaskRepository_RetargetAndDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	first := newTask("a", "Daily", "2024-03-01")
	first.IsComplete = true
	first.SuccessorID = strPtr("b")
	first.NextOccurrenceDate = calendar.Ptr(calendar.MustParse("2024-03-02"))
	require.NoError(t, repo.Create(ctx, 1, first))
	second := newTask("b", "Daily", "2024-03-02")
	second.PredecessorID = strPtr("a")
	require.NoError(t, repo.Create(ctx, 1, second))
	third := newTask("c", "Daily", "2024-03-03")
	third.PredecessorID = strPtr("b")
	require.NoError(t, repo.Create(ctx, 1, third))

	n, err := repo.RetargetSuccessor(ctx, 1, "b", "c", calendar.MustParse("2024-03-03"))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, 1, "a")
	require.NoError(t, err)
	require.Equal(t, "c", *got.SuccessorID)
	require.Equal(t, "2024-03-03", got.NextOccurrenceDate.String())
	require.Equal(t, int64(2), got.Version)

	require.NoError(t, repo.Delete(ctx, 1, "c"))
	got, err = repo.Get(ctx, 1, "a")
	require.NoError(t, err)
	require.Nil(t, got.SuccessorID)
	require.Nil(t, got.NextOccurrenceDate)
}

func TestTaskRepository_SinglePredecessorPerSuccessor(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	require.NoError(t, repo.Create(ctx, 1, newTask("a", "Daily", "2024-03-01")))
	s1 := newTask("s1", "Daily", "2024-03-02")
	s1.PredecessorID = strPtr("a")
	require.NoError(t, repo.Create(ctx, 1, s1))
	s2 := newTask("s2", "Daily", "2024-03-02")
	s2.PredecessorID = strPtr("a")
	require.Equal(t, repository.ErrDuplicate, repo.Create(ctx, 1, s2))
}

func TestTaskRepository_ClaimRequest(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	ok, err := repo.ClaimRequest(ctx, 1, "key-1", "t1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ClaimRequest(ctx, 1, "key-1", "t1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.ClaimRequest(ctx, 2, "key-1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
}

func strPtr(s string) *string {
	return &s
}

package integration_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db    *sqlite.DB
	clock *calendar.FakeClock

	taskSvc     *task.Service
	habitSvc    *habit.Service
	activitySvc *activity.Service
}

func newTestEnv(t *testing.T, start time.Time) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "routine.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	clock := calendar.NewFakeClock(start)
	cal := calendar.NewResolverIn(time.UTC, clock)
	activityRepo := sqlite.NewActivityRepository(db)

	return &testEnv{
		db:          db,
		clock:       clock,
		taskSvc:     task.NewService(sqlite.NewTaskRepository(db), activityRepo, cal, nil),
		habitSvc:    habit.NewService(sqlite.NewHabitRepository(db), activityRepo, cal, nil),
		activitySvc: activity.NewService(activityRepo, nil),
	}
}

func TestIntegration_MonthEndChain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC))

	rent, err := env.taskSvc.Create(ctx, 1, task.CreateRequest{
		Title:      "Pay rent",
		DueDate:    calendar.Ptr(calendar.MustParse("2024-01-31")),
		Recurrence: recurrence.Rule{Kind: recurrence.KindMonthly, Interval: 1},
	})
	require.NoError(t, err)

	want := []string{"2024-02-29", "2024-03-29", "2024-04-29"}
	current := rent.ID
	for _, due := range want {
		res, err := env.taskSvc.MarkComplete(ctx, 1, task.CompleteRequest{ID: current})
		require.NoError(t, err)
		require.NotNil(t, res.Successor)
		require.Equal(t, due, res.Successor.DueDate.String())
		current = res.Successor.ID
	}

	first, err := env.taskSvc.Get(ctx, 1, rent.ID)
	require.NoError(t, err)
	require.True(t, first.IsComplete)
	// Completed occurrences point at the newest one.
	require.Equal(t, "2024-04-29", first.NextOccurrenceDate.String())
	require.Equal(t, current, *first.SuccessorID)

	all, err := env.taskSvc.List(ctx, 1, task.ListOptions{Status: task.StatusAll})
	require.NoError(t, err)
	require.Len(t, all, 4)

	spawned := activity.TypeSuccessorSpawned
	entries, err := env.activitySvc.GetRecentActivity(ctx, 1, activity.ListActivityOptions{ActivityType: &spawned})
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestIntegration_ConcurrentCompletionSpawnsOneSuccessor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))

	created, err := env.taskSvc.Create(ctx, 1, task.CreateRequest{
		Title:      "Vitamins",
		DueDate:    calendar.Ptr(calendar.MustParse("2024-03-05")),
		Recurrence: recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1},
	})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.taskSvc.MarkComplete(ctx, 1, task.CompleteRequest{ID: created.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := env.taskSvc.List(ctx, 1, task.ListOptions{Status: task.StatusAll})
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := env.taskSvc.List(ctx, 1, task.ListOptions{Status: task.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "2024-03-06", pending[0].DueDate.String())
}

func TestIntegration_ConcurrentHabitReps(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))

	h, err := env.habitSvc.Create(ctx, 1, habit.CreateRequest{Title: "Water", CompletionsPerDay: 3})
	require.NoError(t, err)

	const workers = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.habitSvc.RecordCompletion(ctx, 1, h.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, habit.ErrMaxCompletionsReached):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, succeeded)
	require.Equal(t, 2, rejected)

	got, err := env.habitSvc.Get(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.CompletionsToday)
	require.Equal(t, 1, got.Level())
}

func TestIntegration_DayRollover(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC))

	h, err := env.habitSvc.Create(ctx, 1, habit.CreateRequest{Title: "Journal"})
	require.NoError(t, err)
	_, err = env.habitSvc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)

	// Before midnight nothing resets.
	rolled, err := env.habitSvc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, rolled.Reset)

	env.clock.Advance(time.Hour)
	rolled, err = env.habitSvc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "2024-03-06", rolled.Today.String())
	require.Equal(t, []string{h.ID}, rolled.Reset)

	rolled, err = env.habitSvc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, rolled.Reset)

	got, err := env.habitSvc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Level())
	require.True(t, got.IsComplete())
}

func TestIntegration_ReopenKeepsSuccessor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))

	created, err := env.taskSvc.Create(ctx, 1, task.CreateRequest{
		Title:      "Water plants",
		DueDate:    calendar.Ptr(calendar.MustParse("2024-03-05")),
		Recurrence: recurrence.Rule{Kind: recurrence.KindWeekly, Interval: 1},
	})
	require.NoError(t, err)

	res, err := env.taskSvc.MarkComplete(ctx, 1, task.CompleteRequest{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Successor)

	reopened, err := env.taskSvc.MarkIncomplete(ctx, 1, created.ID)
	require.NoError(t, err)
	require.False(t, reopened.IsComplete)

	// A second completion reuses the existing successor.
	again, err := env.taskSvc.MarkComplete(ctx, 1, task.CompleteRequest{ID: created.ID})
	require.NoError(t, err)
	require.Nil(t, again.Successor)

	all, err := env.taskSvc.List(ctx, 1, task.ListOptions{Status: task.StatusAll})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

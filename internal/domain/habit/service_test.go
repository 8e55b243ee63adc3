package habit_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/repository"
	"github.com/rpggio/routine/internal/repository/mocks"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *habit.Service
	clock *calendar.FakeClock
	db    *sqlite.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := calendar.NewFakeClock(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))
	cal := calendar.NewResolverIn(time.UTC, clock)
	svc := habit.NewService(sqlite.NewHabitRepository(db), sqlite.NewActivityRepository(db), cal, nil)
	return &fixture{svc: svc, clock: clock, db: db}
}

func TestService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "  Stretch "})
	require.NoError(t, err)
	require.Equal(t, "Stretch", h.Title)
	require.Equal(t, habit.KindStandard, h.Kind)
	require.Equal(t, 1, h.CompletionsPerDay)
	require.Equal(t, recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1}, h.Frequency)
	require.Equal(t, "2024-03-05", h.LastResetDate.String())

	_, err = f.svc.Create(ctx, 1, habit.CreateRequest{Title: "   "})
	require.ErrorIs(t, err, habit.ErrInvalidInput)

	_, err = f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Bad", Frequency: recurrence.Rule{Kind: "hourly"}})
	require.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestService_CreateInfersKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	counter, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Drink water (3/8)"})
	require.NoError(t, err)
	require.Equal(t, habit.KindCounter, counter.Kind)
	require.Equal(t, "Drink water", counter.Title)
	require.Equal(t, 3, counter.CounterCurrent)
	require.Equal(t, 8, counter.CompletionsPerDay)
	require.Equal(t, "Drink water (3/8)", counter.DisplayTitle())

	tally, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Steps", CompletionsPerDay: 10000})
	require.NoError(t, err)
	require.Equal(t, habit.KindTally, tally.Kind)

	explicit, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Reps", Kind: habit.KindStandard, CompletionsPerDay: 150})
	require.NoError(t, err)
	require.Equal(t, habit.KindStandard, explicit.Kind)
	require.Equal(t, 150, explicit.CompletionsPerDay)
}

func TestService_RecordCompletionOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Meditate"})
	require.NoError(t, err)

	got, err := f.svc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalCompletions)
	require.True(t, got.IsComplete())

	for i := 0; i < 3; i++ {
		_, err = f.svc.RecordCompletion(ctx, 1, h.ID)
		require.ErrorIs(t, err, habit.ErrMaxCompletionsReached)
	}

	stored, err := f.svc.Get(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalCompletions)

	f.clock.Advance(24 * time.Hour)
	got, err = f.svc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.CompletionsToday)
	require.Equal(t, 2, got.TotalCompletions)
	require.Equal(t, "2024-03-06", got.LastResetDate.String())
}

func TestService_RemoveThenRecordAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Journal"})
	require.NoError(t, err)

	_, err = f.svc.RemoveCompletion(ctx, 1, h.ID)
	require.ErrorIs(t, err, habit.ErrNoCompletionToRemove)

	_, err = f.svc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	got, err := f.svc.RemoveCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Zero(t, got.TotalCompletions)
	require.Zero(t, got.CompletionsToday)

	got, err = f.svc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalCompletions)

	var days int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM habit_completions WHERE habit_id = ?`, h.ID).Scan(&days))
	require.Equal(t, 1, days)
}

func TestService_RollDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Floss"})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Water (2/8)"})
	require.NoError(t, err)
	_, err = f.svc.RecordCompletion(ctx, 1, a.ID)
	require.NoError(t, err)

	res, err := f.svc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, res.Reset)

	f.clock.Advance(24 * time.Hour)
	res, err = f.svc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "2024-03-06", res.Today.String())
	require.ElementsMatch(t, []string{a.ID, b.ID}, res.Reset)

	res, err = f.svc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, res.Reset)

	gotA, err := f.svc.Get(ctx, 1, a.ID)
	require.NoError(t, err)
	require.Zero(t, gotA.CompletionsToday)
	require.Equal(t, 1, gotA.TotalCompletions)

	gotB, err := f.svc.Get(ctx, 1, b.ID)
	require.NoError(t, err)
	require.Zero(t, gotB.CounterCurrent)
	require.Equal(t, "Water (0/8)", gotB.DisplayTitle())
}

func TestService_ResetForNewDayReportsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Walk"})
	require.NoError(t, err)

	_, reset, err := f.svc.ResetForNewDay(ctx, 1, h.ID)
	require.NoError(t, err)
	require.False(t, reset)

	_, _, err = f.svc.ResetForNewDay(ctx, 1, "missing")
	require.ErrorIs(t, err, habit.ErrHabitNotFound)
}

func TestService_ClaimedDayDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	today := calendar.MustParse("2024-03-05")
	clock := calendar.NewFakeClock(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))
	cal := calendar.NewResolverIn(time.UTC, clock)

	store := &mocks.HabitStore{}
	current := &habit.Habit{
		ID:                "h1",
		Title:             "Read",
		Kind:              habit.KindStandard,
		CompletionsPerDay: 2,
		TotalCompletions:  4,
		LastResetDate:     calendar.Ptr(today),
		Version:           3,
	}
	store.On("WithinTx", ctx).Return(nil)
	store.On("Get", ctx, int64(1), "h1").Return(current, nil)
	store.On("ClaimDay", ctx, int64(1), "h1", today).Return(false, nil)
	store.On("Update", ctx, int64(1), mock.MatchedBy(func(h *habit.Habit) bool {
		return h.TotalCompletions == 4 && h.CompletionsToday == 1 && h.Version == 4
	}), int64(3)).Return(nil)

	svc := habit.NewService(store, nil, cal, nil)
	got, err := svc.RecordCompletion(ctx, 1, "h1")
	require.NoError(t, err)
	require.Equal(t, 4, got.TotalCompletions)
	store.AssertExpectations(t)
}

func TestService_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := &mocks.HabitStore{}
	store.On("WithinTx", ctx).Return(nil)
	store.On("Get", ctx, int64(1), "h1").Return(&habit.Habit{
		ID:                "h1",
		Title:             "Read",
		Kind:              habit.KindStandard,
		CompletionsPerDay: 1,
		Version:           1,
	}, nil)
	store.On("ClaimDay", ctx, int64(1), "h1", mock.Anything).Return(true, nil)
	store.On("Update", ctx, int64(1), mock.Anything, int64(1)).Return(repository.ErrConflict)

	svc := habit.NewService(store, nil, nil, nil)
	_, err := svc.RecordCompletion(ctx, 1, "h1")
	require.ErrorIs(t, err, habit.ErrConflict)
	store.AssertNumberOfCalls(t, "WithinTx", 2)
}

func TestNormalizeKind(t *testing.T) {
	k, err := habit.NormalizeKind(" Tally ")
	require.NoError(t, err)
	require.Equal(t, habit.KindTally, k)

	k, err = habit.NormalizeKind("")
	require.NoError(t, err)
	require.Empty(t, k)

	_, err = habit.NormalizeKind("weekly")
	require.ErrorIs(t, err, habit.ErrInvalidInput)
}

func TestService_ReadsReflectNewDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, 1, habit.CreateRequest{Title: "Stretch"})
	require.NoError(t, err)
	_, err = f.svc.RecordCompletion(ctx, 1, h.ID)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)

	got, err := f.svc.Get(ctx, 1, h.ID)
	require.NoError(t, err)
	require.Zero(t, got.CompletionsToday)
	require.False(t, got.IsComplete())
	require.Equal(t, 1, got.Level())
	require.Equal(t, "2024-03-06", got.LastResetDate.String())

	list, err := f.svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Zero(t, list[0].CompletionsToday)
	require.False(t, list[0].IsComplete())

	// Reads do not persist the rollover.
	res, err := f.svc.RollDay(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{h.ID}, res.Reset)
}

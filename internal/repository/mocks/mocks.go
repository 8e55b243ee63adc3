package mocks

import (
	"context"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/stretchr/testify/mock"
)

// TaskStore is a mock for task.Store. WithinTx runs the callback against the
// mock itself.
type TaskStore struct {
	mock.Mock
}

func (m *TaskStore) WithinTx(ctx context.Context, fn func(repo task.Repository) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *TaskStore) Create(ctx context.Context, userID int64, t *task.Task) error {
	args := m.Called(ctx, userID, t)
	return args.Error(0)
}

func (m *TaskStore) Get(ctx context.Context, userID int64, id string) (*task.Task, error) {
	args := m.Called(ctx, userID, id)
	if t, ok := args.Get(0).(*task.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskStore) Update(ctx context.Context, userID int64, t *task.Task, expectedVersion int64) error {
	args := m.Called(ctx, userID, t, expectedVersion)
	return args.Error(0)
}

func (m *TaskStore) Delete(ctx context.Context, userID int64, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *TaskStore) List(ctx context.Context, userID int64, opts task.ListOptions) ([]task.Task, error) {
	args := m.Called(ctx, userID, opts)
	if list, ok := args.Get(0).([]task.Task); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskStore) RetargetSuccessor(ctx context.Context, userID int64, fromID, toID string, next calendar.Date) (int64, error) {
	args := m.Called(ctx, userID, fromID, toID, next)
	return args.Get(0).(int64), args.Error(1)
}

func (m *TaskStore) ClaimRequest(ctx context.Context, userID int64, key, taskID string) (bool, error) {
	args := m.Called(ctx, userID, key, taskID)
	return args.Bool(0), args.Error(1)
}

// HabitStore is a mock for habit.Store.
type HabitStore struct {
	mock.Mock
}

func (m *HabitStore) WithinTx(ctx context.Context, fn func(repo habit.Repository) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *HabitStore) Create(ctx context.Context, userID int64, h *habit.Habit) error {
	args := m.Called(ctx, userID, h)
	return args.Error(0)
}

func (m *HabitStore) Get(ctx context.Context, userID int64, id string) (*habit.Habit, error) {
	args := m.Called(ctx, userID, id)
	if h, ok := args.Get(0).(*habit.Habit); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HabitStore) Update(ctx context.Context, userID int64, h *habit.Habit, expectedVersion int64) error {
	args := m.Called(ctx, userID, h, expectedVersion)
	return args.Error(0)
}

func (m *HabitStore) Delete(ctx context.Context, userID int64, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *HabitStore) List(ctx context.Context, userID int64) ([]habit.Habit, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]habit.Habit); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HabitStore) ClaimDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error) {
	args := m.Called(ctx, userID, habitID, day)
	return args.Bool(0), args.Error(1)
}

func (m *HabitStore) ReleaseDay(ctx context.Context, userID int64, habitID string, day calendar.Date) (bool, error) {
	args := m.Called(ctx, userID, habitID, day)
	return args.Bool(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, userID int64, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, userID int64, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, userID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

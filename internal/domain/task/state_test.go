package task_test

import (
	"testing"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/stretchr/testify/require"
)

func date(s string) *calendar.Date {
	return calendar.Ptr(calendar.MustParse(s))
}

func TestDeriveState(t *testing.T) {
	today := calendar.MustParse("2024-03-05")
	daily := recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1}

	tests := []struct {
		name   string
		task   task.Task
		state  task.State
		active bool
	}{
		{name: "no due date", task: task.Task{}, state: task.StateActive, active: true},
		{name: "due today", task: task.Task{DueDate: date("2024-03-05")}, state: task.StateActive, active: true},
		{name: "due yesterday", task: task.Task{DueDate: date("2024-03-04")}, state: task.StateActiveOverdue, active: true},
		{name: "complete", task: task.Task{IsComplete: true, DueDate: date("2024-03-01")}, state: task.StateComplete},
		{
			name:  "complete with current successor",
			task:  task.Task{IsComplete: true, Recurrence: daily, NextOccurrenceDate: date("2024-03-05")},
			state: task.StateComplete,
		},
		{
			name:   "complete with overdue successor",
			task:   task.Task{IsComplete: true, Recurrence: daily, NextOccurrenceDate: date("2024-03-02")},
			state:  task.StateCompleteOverdueSuccessor,
			active: true,
		},
		{
			name:  "non-recurring ignores next date",
			task:  task.Task{IsComplete: true, Recurrence: recurrence.None, NextOccurrenceDate: date("2024-03-02")},
			state: task.StateComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := task.NewView(tt.task, today)
			require.Equal(t, tt.state, v.State)
			require.Equal(t, tt.active, v.PresentedActive)
		})
	}
}

func TestIsOverdue(t *testing.T) {
	today := calendar.MustParse("2024-03-05")
	require.True(t, task.IsOverdue(task.Task{DueDate: date("2024-03-04")}, today))
	require.False(t, task.IsOverdue(task.Task{DueDate: date("2024-03-04"), IsComplete: true}, today))
	require.False(t, task.IsOverdue(task.Task{}, today))
}

func TestParseStatus(t *testing.T) {
	require.Equal(t, task.StatusOverdue, task.ParseStatus("overdue"))
	require.Equal(t, task.StatusAll, task.ParseStatus(""))
	require.Equal(t, task.StatusAll, task.ParseStatus("bogus"))
}

package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/transport"
)

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"one of all, pending, done, overdue, due_today, upcoming"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of tasks"`
	Offset int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

type createTaskInput struct {
	Title              string `json:"title" jsonschema:"task title"`
	Description        string `json:"description,omitempty" jsonschema:"optional notes"`
	DueDate            string `json:"due_date,omitempty" jsonschema:"due date as YYYY-MM-DD"`
	RecurrenceType     string `json:"recurrence_type,omitempty" jsonschema:"none, daily, weekly, monthly or yearly"`
	RecurrenceInterval *int   `json:"recurrence_interval,omitempty" jsonschema:"repeat every N periods, at least 1; default 1"`
}

type taskIDInput struct {
	ID string `json:"id" jsonschema:"task ID"`
}

type completeTaskInput struct {
	ID         string `json:"id" jsonschema:"task ID"`
	RequestKey string `json:"request_key,omitempty" jsonschema:"client key that makes a retried completion a no-op"`
}

type createHabitInput struct {
	Title             string `json:"title" jsonschema:"habit title; a trailing (x/y) makes a counter habit"`
	Kind              string `json:"kind,omitempty" jsonschema:"standard, counter or tally; inferred when omitted"`
	FrequencyType     string `json:"frequency_type,omitempty" jsonschema:"daily, weekly, monthly or yearly"`
	FrequencyInterval *int   `json:"frequency_interval,omitempty" jsonschema:"every N periods, at least 1; default 1"`
	CompletionsPerDay int    `json:"completions_per_day,omitempty" jsonschema:"reps that complete a day, default 1"`
	CounterTotal      int    `json:"counter_total,omitempty" jsonschema:"daily target for counter habits"`
}

type habitIDInput struct {
	ID string `json:"id" jsonschema:"habit ID"`
}

type emptyInput struct{}

type tools struct {
	tasks  TaskService
	habits HabitService
}

func registerTools(server *sdkmcp.Server, svc Services) {
	t := &tools{tasks: svc.Tasks, habits: svc.Habits}

	if t.tasks != nil {
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "list_tasks",
			Description: "List tasks with their derived state for today",
		}, t.listTasks)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "create_task",
			Description: "Create a task, optionally with a due date and a repeat rule",
		}, t.createTask)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "complete_task",
			Description: "Complete a task; recurring tasks spawn their next occurrence",
		}, t.completeTask)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "uncomplete_task",
			Description: "Reopen a completed task; a spawned successor is kept",
		}, t.uncompleteTask)
	}

	if t.habits != nil {
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "list_habits",
			Description: "List habits with today's progress and level",
		}, t.listHabits)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "create_habit",
			Description: "Create a habit",
		}, t.createHabit)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "record_habit_completion",
			Description: "Record one rep of a habit for today",
		}, t.recordHabitCompletion)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "remove_habit_completion",
			Description: "Clear all of today's progress on a habit and lower its level by one",
		}, t.removeHabitCompletion)
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "roll_day",
			Description: "Reset daily progress of habits last reset before today",
		}, t.rollDay)
	}
}

func callerID(ctx context.Context) (int64, *sdkmcp.CallToolResult) {
	userID, ok := transport.UserFromContext(ctx)
	if !ok {
		return 0, toolError(transport.ErrUnauthorized)
	}
	return userID, nil
}

func (t *tools) listTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in listTasksInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	list, err := t.tasks.List(ctx, userID, task.ListOptions{
		Status: task.ParseStatus(in.Status),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return toolError(err), nil, nil
	}
	today := t.tasks.Today()
	out := make([]transport.TaskResponse, 0, len(list))
	for _, item := range list {
		out = append(out, transport.NewTaskResponse(item, today))
	}
	res, err := toolResult(map[string]any{"today": today, "tasks": out})
	return res, nil, err
}

func (t *tools) createTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in createTaskInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return toolError(err), nil, nil
	}
	rule, err := recurrence.NewRule(in.RecurrenceType, in.RecurrenceInterval)
	if err != nil {
		return toolError(err), nil, nil
	}

	created, err := t.tasks.Create(ctx, userID, task.CreateRequest{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     due,
		Recurrence:  rule,
	})
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewTaskResponse(*created, t.tasks.Today()))
	return res, nil, err
}

func (t *tools) completeTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in completeTaskInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	done, err := t.tasks.MarkComplete(ctx, userID, task.CompleteRequest{ID: in.ID, RequestKey: in.RequestKey})
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewCompleteResponse(done, t.tasks.Today()))
	return res, nil, err
}

func (t *tools) uncompleteTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in taskIDInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	reopened, err := t.tasks.MarkIncomplete(ctx, userID, in.ID)
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewTaskResponse(*reopened, t.tasks.Today()))
	return res, nil, err
}

func (t *tools) listHabits(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	list, err := t.habits.List(ctx, userID)
	if err != nil {
		return toolError(err), nil, nil
	}
	out := make([]transport.HabitResponse, 0, len(list))
	for _, h := range list {
		out = append(out, transport.NewHabitResponse(h))
	}
	res, err := toolResult(map[string]any{"habits": out})
	return res, nil, err
}

func (t *tools) createHabit(ctx context.Context, _ *sdkmcp.CallToolRequest, in createHabitInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	kind, err := habit.NormalizeKind(in.Kind)
	if err != nil {
		return toolError(err), nil, nil
	}
	var freq recurrence.Rule
	if in.FrequencyType != "" || in.FrequencyInterval != nil {
		freqType := in.FrequencyType
		if freqType == "" {
			freqType = string(recurrence.KindDaily)
		}
		if freq, err = recurrence.NewRule(freqType, in.FrequencyInterval); err != nil {
			return toolError(err), nil, nil
		}
	}

	created, err := t.habits.Create(ctx, userID, habit.CreateRequest{
		Title:             in.Title,
		Kind:              kind,
		Frequency:         freq,
		CompletionsPerDay: in.CompletionsPerDay,
		CounterTotal:      in.CounterTotal,
	})
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewHabitResponse(*created))
	return res, nil, err
}

func (t *tools) recordHabitCompletion(ctx context.Context, _ *sdkmcp.CallToolRequest, in habitIDInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	h, err := t.habits.RecordCompletion(ctx, userID, in.ID)
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewHabitResponse(*h))
	return res, nil, err
}

func (t *tools) removeHabitCompletion(ctx context.Context, _ *sdkmcp.CallToolRequest, in habitIDInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	h, err := t.habits.RemoveCompletion(ctx, userID, in.ID)
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(transport.NewHabitResponse(*h))
	return res, nil, err
}

func (t *tools) rollDay(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
	userID, denied := callerID(ctx)
	if denied != nil {
		return denied, nil, nil
	}
	rolled, err := t.habits.RollDay(ctx, userID)
	if err != nil {
		return toolError(err), nil, nil
	}
	res, err := toolResult(rolled)
	return res, nil, err
}

func parseDate(raw string) (*calendar.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date: %v", transport.ErrBadRequest, err)
	}
	return &d, nil
}

package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `routine tracks tasks and daily habits for one user.

Core concepts:
- Day: every date is a calendar day in the server's time zone. "today" is reported by list_tasks.
- Task: a to-do with an optional due date and repeat rule (none, daily, weekly, monthly, yearly, every N).
- Successor: completing a recurring task creates its next occurrence, due one interval after the
  completed due date. A completed task whose newest successor is overdue is presented as active.
- Habit: a daily routine. Standard habits complete after N reps, counters show "Title (x/y)", tallies only count.
- Level: the lifetime number of days a habit was engaged. It grows at most once per day.

Workflow:
1) list_tasks / list_habits to orient.
2) complete_task with a request_key when a retry is possible; the retry is then a no-op.
3) record_habit_completion per rep; remove_habit_completion clears all of today's reps and lowers the level by one.
4) Habit reads always describe today; roll_day stores the reset for habits last reset on an earlier day.

Docs: routine://docs/guide
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "routine://docs/guide",
		Name:        "docs_guide",
		Title:       "routine guide",
		Description: "Task states, repeat rules and habit progress in detail.",
		Content: `# routine guide

## Task states

| State | Meaning |
|---|---|
| ACTIVE | not complete, due today, in the future, or undated |
| ACTIVE_OVERDUE | not complete and due before today |
| COMPLETE | complete; any successor is due today or later |
| COMPLETE_WITH_OVERDUE_SUCCESSOR | complete, but its newest successor is already overdue |

A task in ` + "`COMPLETE_WITH_OVERDUE_SUCCESSOR`" + ` is presented as active. Completing it again
completes the overdue occurrence and advances the chain by one interval.

## Repeat rules

- Next occurrence = due date + interval periods.
- Monthly and yearly rules clamp to the last day of shorter months (Jan 31 + 1 month = Feb 29 in leap years).
- A recurring task without a due date does not spawn a successor; an activity entry records it.

## Habits

- ` + "`record_habit_completion`" + ` adds a rep. The first rep of a day raises the level by one.
- A day's target is ` + "`completions_per_day`" + ` (or the counter total). Further reps are rejected.
- Tally habits have no target and are never complete.
- ` + "`remove_habit_completion`" + ` clears every rep recorded today and lowers the level by one. It fails when nothing was recorded today.
- ` + "`roll_day`" + ` resets today's reps for habits last reset on an earlier day. It is idempotent.

## Errors

Failed tool calls return ` + "`{\"error\": {\"code\", \"message\", \"recovery_hint\"}}`" + `, with codes such as
` + "`TASK_NOT_FOUND`" + `, ` + "`INVALID_RECURRENCE`" + ` and ` + "`MAX_COMPLETIONS_REACHED`" + `.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

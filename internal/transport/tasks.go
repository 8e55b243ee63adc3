package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/domain/task"
)

// IdempotencyHeader carries a client-chosen key for retried completions.
const IdempotencyHeader = "Idempotency-Key"

// TaskResponse is the wire form of a task with its derived state.
type TaskResponse struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	DueDate            *calendar.Date `json:"due_date"`
	RecurrenceType     string         `json:"recurrence_type"`
	RecurrenceInterval int            `json:"recurrence_interval"`
	IsComplete         bool           `json:"is_complete"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	NextOccurrenceDate *calendar.Date `json:"next_occurrence_date,omitempty"`
	SuccessorID        *string        `json:"successor_id,omitempty"`
	PredecessorID      *string        `json:"predecessor_id,omitempty"`
	State              task.State     `json:"state"`
	PresentedActive    bool           `json:"presented_active"`
	Version            int64          `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewTaskResponse derives the response for t on today.
func NewTaskResponse(t task.Task, today calendar.Date) TaskResponse {
	v := task.NewView(t, today)
	return TaskResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		DueDate:            t.DueDate,
		RecurrenceType:     string(t.Recurrence.Kind),
		RecurrenceInterval: t.Recurrence.Interval,
		IsComplete:         t.IsComplete,
		CompletedAt:        t.CompletedAt,
		NextOccurrenceDate: t.NextOccurrenceDate,
		SuccessorID:        t.SuccessorID,
		PredecessorID:      t.PredecessorID,
		State:              v.State,
		PresentedActive:    v.PresentedActive,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// CompleteResponse reports the outcome of a completion.
type CompleteResponse struct {
	Task          TaskResponse  `json:"task"`
	Completed     *TaskResponse `json:"completed,omitempty"`
	Successor     *TaskResponse `json:"successor,omitempty"`
	MissingAnchor bool          `json:"missing_anchor,omitempty"`
	NoOp          bool          `json:"no_op,omitempty"`
}

type createTaskRequest struct {
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	DueDate            *calendar.Date `json:"due_date"`
	RecurrenceType     string         `json:"recurrence_type"`
	RecurrenceInterval *int           `json:"recurrence_interval"`
}

type updateTaskRequest struct {
	Title              *string        `json:"title"`
	Description        *string        `json:"description"`
	DueDate            *calendar.Date `json:"due_date"`
	ClearDueDate       bool           `json:"clear_due_date"`
	RecurrenceType     *string        `json:"recurrence_type"`
	RecurrenceInterval *int           `json:"recurrence_interval"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body createTaskRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	rule, err := recurrence.NewRule(body.RecurrenceType, body.RecurrenceInterval)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := s.tasks.Create(r.Context(), uid, task.CreateRequest{
		Title:       body.Title,
		Description: body.Description,
		DueDate:     body.DueDate,
		Recurrence:  rule,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewTaskResponse(*t, s.tasks.Today()))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := task.ListOptions{Status: task.ParseStatus(q.Get("status"))}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, err)
		return
	}

	list, err := s.tasks.List(r.Context(), uid, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	today := s.tasks.Today()
	out := make([]TaskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, NewTaskResponse(t, today))
	}
	writeJSON(w, http.StatusOK, map[string]any{"today": today, "tasks": out})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	t, err := s.tasks.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTaskResponse(*t, s.tasks.Today()))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body updateTaskRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	req := task.UpdateRequest{
		ID:           chi.URLParam(r, "id"),
		Title:        body.Title,
		Description:  body.Description,
		DueDate:      body.DueDate,
		ClearDueDate: body.ClearDueDate,
	}
	if body.RecurrenceType != nil || body.RecurrenceInterval != nil {
		kind, interval := "", body.RecurrenceInterval
		if body.RecurrenceType != nil {
			kind = *body.RecurrenceType
		} else {
			current, err := s.tasks.Get(r.Context(), uid, req.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			kind = string(current.Recurrence.Kind)
		}
		rule, err := recurrence.NewRule(kind, interval)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Recurrence = &rule
	}

	t, err := s.tasks.Update(r.Context(), uid, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTaskResponse(*t, s.tasks.Today()))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := s.tasks.MarkComplete(r.Context(), uid, task.CompleteRequest{
		ID:         chi.URLParam(r, "id"),
		RequestKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewCompleteResponse(res, s.tasks.Today()))
}

func (s *Server) reopenTask(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	t, err := s.tasks.MarkIncomplete(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTaskResponse(*t, s.tasks.Today()))
}

// NewCompleteResponse converts a completion result.
func NewCompleteResponse(res *task.CompleteResult, today calendar.Date) CompleteResponse {
	out := CompleteResponse{
		Task:          NewTaskResponse(res.Task, today),
		MissingAnchor: res.MissingAnchor,
		NoOp:          res.NoOp,
	}
	if res.Completed != nil && res.Completed.ID != res.Task.ID {
		c := NewTaskResponse(*res.Completed, today)
		out.Completed = &c
	}
	if res.Successor != nil {
		succ := NewTaskResponse(*res.Successor, today)
		out.Successor = &succ
	}
	return out
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid number %q", ErrBadRequest, raw)
	}
	return v, nil
}

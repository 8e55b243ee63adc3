package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/repository"
)

const (
	// txAttempts bounds reload-and-retry after an optimistic version miss.
	txAttempts = 2
	// maxChainHops bounds the walk from a predecessor to its chain head.
	maxChainHops = 32
)

// Service handles task lifecycle logic.
type Service struct {
	store      Store
	activities ActivityRepository
	calendar   *calendar.Resolver
	logger     *slog.Logger
}

// NewService creates a new task service.
func NewService(store Store, activities ActivityRepository, cal *calendar.Resolver, logger *slog.Logger) *Service {
	if cal == nil {
		cal = calendar.NewResolverIn(time.UTC, nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:      store,
		activities: activities,
		calendar:   cal,
		logger:     logger,
	}
}

// CreateRequest describes a task creation request.
type CreateRequest struct {
	Title       string
	Description string
	DueDate     *calendar.Date
	Recurrence  recurrence.Rule
}

// UpdateRequest describes an edit of a task's descriptive fields.
type UpdateRequest struct {
	ID           string
	Title        *string
	Description  *string
	DueDate      *calendar.Date
	ClearDueDate bool
	Recurrence   *recurrence.Rule
}

// CompleteRequest describes a completion. RequestKey, when set, makes a
// retried request a no-op.
type CompleteRequest struct {
	ID         string
	RequestKey string
}

// CompleteResult describes what a completion did.
type CompleteResult struct {
	// Task is the requested task after the transition.
	Task Task
	// Completed is the occurrence that was marked complete. It differs from
	// Task when a predecessor advanced its chain.
	Completed *Task
	// Successor is the occurrence spawned by this call, if any.
	Successor *Task
	// MissingAnchor is set when a recurring task had no due date.
	MissingAnchor bool
	// NoOp is set when nothing changed.
	NoOp bool
}

// Today returns the service's current calendar date.
func (s *Service) Today() calendar.Date {
	return s.calendar.Today()
}

// View derives the state of t for today.
func (s *Service) View(t Task) View {
	return NewView(t, s.calendar.Today())
}

// Create validates and stores a new task.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidInput
	}
	rule := req.Recurrence
	if rule == (recurrence.Rule{}) {
		rule = recurrence.None
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	now := s.calendar.Now()
	t := &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		Recurrence:  rule,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, userID, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logActivity(ctx, userID, activity.TypeTaskCreated, t.ID, fmt.Sprintf("created task %q", t.Title))
	return t, nil
}

// Get returns a task by ID.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*Task, error) {
	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err, "getting task")
	}
	return t, nil
}

// List returns tasks matching opts.
func (s *Service) List(ctx context.Context, userID int64, opts ListOptions) ([]Task, error) {
	if opts.Today.IsZero() {
		opts.Today = s.calendar.Today()
	}
	if opts.Status == "" {
		opts.Status = StatusAll
	}
	return s.store.List(ctx, userID, opts)
}

// Update edits a task's descriptive fields and schedule.
func (s *Service) Update(ctx context.Context, userID int64, req UpdateRequest) (*Task, error) {
	if req.ID == "" {
		return nil, ErrInvalidInput
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrInvalidInput
	}
	if req.Recurrence != nil {
		if err := req.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}

	var updated Task
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		current, err := repo.Get(ctx, userID, req.ID)
		if err != nil {
			return mapNotFound(err, "loading task")
		}
		updated = *current
		if req.Title != nil {
			updated.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			updated.Description = *req.Description
		}
		if req.ClearDueDate {
			updated.DueDate = nil
		} else if req.DueDate != nil {
			updated.DueDate = req.DueDate
		}
		if req.Recurrence != nil {
			updated.Recurrence = *req.Recurrence
		}
		updated.UpdatedAt = s.calendar.Now()
		updated.Version = current.Version + 1
		return repo.Update(ctx, userID, &updated, current.Version)
	})
	if err != nil {
		return nil, mapConflict(err, "updating task")
	}
	return &updated, nil
}

// Delete removes a task. Predecessors pointing at it lose their successor.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return mapNotFound(err, "deleting task")
	}
	return nil
}

// MarkComplete completes a task. For a recurring task the next occurrence is
// created in the same transaction; either both are stored or neither is.
// Completing an already complete task is a no-op unless its chain has fallen
// behind, in which case the chain head is completed instead.
func (s *Service) MarkComplete(ctx context.Context, userID int64, req CompleteRequest) (*CompleteResult, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, ErrInvalidInput
	}

	var result *CompleteResult
	err := s.retryTx(ctx, func(repo Repository) error {
		res, err := s.complete(ctx, repo, userID, req)
		result = res
		return err
	})
	if err != nil {
		return nil, mapConflict(err, "completing task")
	}

	s.logCompletion(ctx, userID, result)
	return result, nil
}

// MarkIncomplete reopens a completed task. A successor spawned earlier is
// kept, so completing again does not create a second one.
func (s *Service) MarkIncomplete(ctx context.Context, userID int64, id string) (*Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}

	var (
		result  Task
		changed bool
	)
	err := s.retryTx(ctx, func(repo Repository) error {
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return mapNotFound(err, "loading task")
		}
		result = *current
		changed = false
		if !current.IsComplete {
			return nil
		}
		result.IsComplete = false
		result.CompletedAt = nil
		result.UpdatedAt = s.calendar.Now()
		result.Version = current.Version + 1
		changed = true
		return repo.Update(ctx, userID, &result, current.Version)
	})
	if err != nil {
		return nil, mapConflict(err, "reopening task")
	}

	if changed {
		s.logActivity(ctx, userID, activity.TypeTaskReopened, result.ID, fmt.Sprintf("reopened task %q", result.Title))
	}
	return &result, nil
}

func (s *Service) complete(ctx context.Context, repo Repository, userID int64, req CompleteRequest) (*CompleteResult, error) {
	today := s.calendar.Today()

	requested, err := repo.Get(ctx, userID, req.ID)
	if err != nil {
		return nil, mapNotFound(err, "loading task")
	}

	if req.RequestKey != "" {
		claimed, err := repo.ClaimRequest(ctx, userID, req.RequestKey, requested.ID)
		if err != nil {
			return nil, fmt.Errorf("claiming request key: %w", err)
		}
		if !claimed {
			return &CompleteResult{Task: *requested, NoOp: true}, nil
		}
	}

	target := requested
	if requested.IsComplete {
		if DeriveState(*requested, today) != StateCompleteOverdueSuccessor {
			return &CompleteResult{Task: *requested, NoOp: true}, nil
		}
		head, err := s.chainHead(ctx, repo, userID, requested)
		if err != nil {
			return nil, err
		}
		if head == nil {
			return &CompleteResult{Task: *requested, NoOp: true}, nil
		}
		target = head
	}

	res, err := s.completeOccurrence(ctx, repo, userID, target)
	if err != nil {
		return nil, err
	}

	if target.ID == requested.ID {
		res.Task = *res.Completed
		return res, nil
	}
	reloaded, err := repo.Get(ctx, userID, requested.ID)
	if err != nil {
		return nil, mapNotFound(err, "reloading task")
	}
	res.Task = *reloaded
	return res, nil
}

// completeOccurrence marks one incomplete task complete and, when it
// recurs and has no successor yet, spawns the next occurrence.
func (s *Service) completeOccurrence(ctx context.Context, repo Repository, userID int64, target *Task) (*CompleteResult, error) {
	now := s.calendar.Now()

	updated := *target
	updated.IsComplete = true
	updated.CompletedAt = &now
	updated.UpdatedAt = now
	updated.Version = target.Version + 1

	res := &CompleteResult{Completed: &updated}

	var next calendar.Date
	if updated.IsRecurring() && !updated.HasSuccessor() {
		if updated.DueDate == nil {
			res.MissingAnchor = true
		} else {
			next, _ = recurrence.Next(*updated.DueDate, updated.Recurrence)
			successor := &Task{
				ID:            uuid.NewString(),
				UserID:        userID,
				Title:         updated.Title,
				Description:   updated.Description,
				DueDate:       calendar.Ptr(next),
				Recurrence:    updated.Recurrence,
				PredecessorID: &updated.ID,
				Version:       1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := repo.Create(ctx, userID, successor); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSuccessorCreationFailed, err)
			}
			updated.NextOccurrenceDate = calendar.Ptr(next)
			updated.SuccessorID = &successor.ID
			res.Successor = successor
		}
	}

	if err := repo.Update(ctx, userID, &updated, target.Version); err != nil {
		return nil, err
	}

	if res.Successor != nil {
		if _, err := repo.RetargetSuccessor(ctx, userID, updated.ID, res.Successor.ID, next); err != nil {
			return nil, fmt.Errorf("advancing predecessors: %w", err)
		}
	}
	return res, nil
}

// chainHead follows successor pointers to the first incomplete occurrence.
func (s *Service) chainHead(ctx context.Context, repo Repository, userID int64, from *Task) (*Task, error) {
	cur := from
	for hop := 0; hop < maxChainHops; hop++ {
		if !cur.IsComplete {
			return cur, nil
		}
		if !cur.HasSuccessor() {
			return nil, nil
		}
		next, err := repo.Get(ctx, userID, *cur.SuccessorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("loading successor: %w", err)
		}
		cur = next
	}
	return nil, fmt.Errorf("recurrence chain from %s exceeds %d hops", from.ID, maxChainHops)
}

// retryTx runs fn in a transaction, reloading once after a version conflict.
func (s *Service) retryTx(ctx context.Context, fn func(repo Repository) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		s.logger.Debug("task version conflict, retrying", "attempt", attempt+1)
	}
	return err
}

func (s *Service) logCompletion(ctx context.Context, userID int64, res *CompleteResult) {
	if res == nil || res.NoOp || res.Completed == nil {
		return
	}
	done := res.Completed
	s.logActivity(ctx, userID, activity.TypeTaskCompleted, done.ID, fmt.Sprintf("completed task %q", done.Title))

	if res.Successor != nil {
		s.logActivity(ctx, userID, activity.TypeSuccessorSpawned, res.Successor.ID,
			fmt.Sprintf("next occurrence of %q due %s", done.Title, res.Successor.DueDate))
	}
	if res.MissingAnchor {
		s.logger.Warn("recurring task completed without due date; no successor created",
			"user_id", userID, "task_id", done.ID, "error", ErrMissingAnchorDate)
		s.logActivity(ctx, userID, activity.TypeMissingAnchorDate, done.ID, ErrMissingAnchorDate.Error())
	}
}

func (s *Service) logActivity(ctx context.Context, userID int64, typ activity.ActivityType, taskID, summary string) {
	if s.activities == nil {
		return
	}
	id := taskID
	if err := s.activities.Log(ctx, userID, &activity.ActivityEntry{
		TaskID:       &id,
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    s.calendar.Now(),
	}); err != nil {
		s.logger.Warn("failed to log task activity", "type", typ, "task_id", taskID, "error", err)
	}
}

func mapNotFound(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrTaskNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func mapConflict(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrSuccessorCreationFailed), errors.Is(err, ErrInvalidRecurrenceRule):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

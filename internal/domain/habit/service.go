package habit

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
	txAttempts = 2
	// TallyThreshold is the daily target above which a habit created without
	// an explicit kind is stored as a tally.
	TallyThreshold = 100
)

// Service handles habit progress.
type Service struct {
	store      Store
	activities ActivityRepository
	calendar   *calendar.Resolver
	logger     *slog.Logger
}

// NewService creates a new habit service.
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

// CreateRequest describes a habit creation request. An empty Kind is
// inferred: a "(x/y)" title makes a counter, a daily target above
// TallyThreshold makes a tally, anything else is standard.
type CreateRequest struct {
	Title             string
	Kind              Kind
	Frequency         recurrence.Rule
	CompletionsPerDay int
	CounterTotal      int
}

// RollResult lists the habits reset by a day rollover.
type RollResult struct {
	Today calendar.Date `json:"today"`
	Reset []string      `json:"reset"`
}

// Today returns the service's current calendar date.
func (s *Service) Today() calendar.Date {
	return s.calendar.Today()
}

// Create validates and stores a new habit. Its reset marker starts at today.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Habit, error) {
	h, err := s.buildHabit(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, userID, h); err != nil {
		return nil, fmt.Errorf("creating habit: %w", err)
	}
	s.logActivity(ctx, userID, activity.TypeHabitCreated, h.ID, fmt.Sprintf("created habit %q", h.DisplayTitle()))
	return h, nil
}

func (s *Service) buildHabit(userID int64, req CreateRequest) (*Habit, error) {
	base, current, total, hasCounter := ParseTitle(req.Title)
	if base == "" {
		return nil, ErrInvalidInput
	}

	kind := req.Kind
	if kind == "" {
		switch {
		case hasCounter || req.CounterTotal > 0:
			kind = KindCounter
		case req.CompletionsPerDay > TallyThreshold:
			kind = KindTally
		default:
			kind = KindStandard
		}
	}

	freq := req.Frequency
	if freq == (recurrence.Rule{}) {
		freq = recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1}
	}
	if err := freq.Validate(); err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	now := s.calendar.Now()
	h := &Habit{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         base,
		Kind:          kind,
		Frequency:     freq,
		LastResetDate: calendar.Ptr(today),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch kind {
	case KindCounter:
		if req.CounterTotal > 0 {
			total = req.CounterTotal
			if current > total {
				current = total
			}
		}
		if total < 1 {
			return nil, ErrInvalidInput
		}
		h.CounterTotal = total
		h.CounterCurrent = current
		h.CompletionsPerDay = total
		h.CompletionsToday = current
	case KindTally:
		h.CompletionsPerDay = req.CompletionsPerDay
	case KindStandard:
		h.CompletionsPerDay = req.CompletionsPerDay
		if h.CompletionsPerDay == 0 {
			h.CompletionsPerDay = 1
		}
		if h.CompletionsPerDay < 1 {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}
	if h.CompletionsPerDay < 0 {
		return nil, ErrInvalidInput
	}
	return h, nil
}

// Get returns a habit by ID as it stands today. A stale day's progress is
// reported as reset; the stored row is rewritten on the next mutation or
// RollDay.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*Habit, error) {
	h, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err, "getting habit")
	}
	current, _ := ResetForNewDay(*h, s.calendar.Today())
	return &current, nil
}

// List returns all habits of a user as they stand today.
func (s *Service) List(ctx context.Context, userID int64) ([]Habit, error) {
	habits, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.calendar.Today()
	for i := range habits {
		habits[i], _ = ResetForNewDay(habits[i], today)
	}
	return habits, nil
}

// Delete removes a habit and its completion history.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return mapNotFound(err, "deleting habit")
	}
	return nil
}

// RecordCompletion adds one rep for today. The day-keyed completion event is
// claimed in the same transaction as the counter write, so a retried request
// cannot bump the lifetime counter twice.
func (s *Service) RecordCompletion(ctx context.Context, userID int64, id string) (*Habit, error) {
	var (
		result  Habit
		outcome Outcome
	)
	err := s.retryTx(ctx, func(repo Repository) error {
		today := s.calendar.Today()
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return mapNotFound(err, "loading habit")
		}

		h, _ := ResetForNewDay(*current, today)
		h, outcome, err = RecordCompletion(h, today)
		if err != nil {
			return err
		}
		if outcome.FirstToday {
			claimed, err := repo.ClaimDay(ctx, userID, h.ID, today)
			if err != nil {
				return fmt.Errorf("claiming completion day: %w", err)
			}
			if !claimed {
				h.TotalCompletions--
				outcome.FirstToday = false
			}
		}

		result = s.touch(h, current.Version)
		return repo.Update(ctx, userID, &result, current.Version)
	})
	if err != nil {
		return nil, mapConflict(err, "recording completion")
	}

	s.logActivity(ctx, userID, activity.TypeHabitCompleted, result.ID,
		fmt.Sprintf("%s: %d/%d today, level %d", result.DisplayTitle(), result.CompletionsToday, result.DailyTarget(), result.Level()))
	return &result, nil
}

// RemoveCompletion clears today's progress and drops the level by one.
func (s *Service) RemoveCompletion(ctx context.Context, userID int64, id string) (*Habit, error) {
	var result Habit
	err := s.retryTx(ctx, func(repo Repository) error {
		today := s.calendar.Today()
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return mapNotFound(err, "loading habit")
		}

		h, _ := ResetForNewDay(*current, today)
		h, err = RemoveCompletion(h, today)
		if err != nil {
			return err
		}
		if _, err := repo.ReleaseDay(ctx, userID, h.ID, today); err != nil {
			return fmt.Errorf("releasing completion day: %w", err)
		}

		result = s.touch(h, current.Version)
		return repo.Update(ctx, userID, &result, current.Version)
	})
	if err != nil {
		return nil, mapConflict(err, "removing completion")
	}

	s.logActivity(ctx, userID, activity.TypeHabitUncompleted, result.ID,
		fmt.Sprintf("removed today's completion of %s", result.DisplayTitle()))
	return &result, nil
}

// ResetForNewDay applies the day rollover to one habit. It reports false and
// leaves the habit untouched when it was already reset today.
func (s *Service) ResetForNewDay(ctx context.Context, userID int64, id string) (*Habit, bool, error) {
	var (
		result Habit
		reset  bool
	)
	err := s.retryTx(ctx, func(repo Repository) error {
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return mapNotFound(err, "loading habit")
		}
		result, reset = ResetForNewDay(*current, s.calendar.Today())
		if !reset {
			return nil
		}
		result = s.touch(result, current.Version)
		return repo.Update(ctx, userID, &result, current.Version)
	})
	if err != nil {
		return nil, false, mapConflict(err, "resetting habit")
	}
	if reset {
		s.logActivity(ctx, userID, activity.TypeHabitReset, result.ID, fmt.Sprintf("reset %s for %s", result.DisplayTitle(), result.LastResetDate))
	}
	return &result, reset, nil
}

// RollDay resets every habit of a user whose marker is older than today.
// Polling it repeatedly on the same day resets nothing after the first call.
func (s *Service) RollDay(ctx context.Context, userID int64) (*RollResult, error) {
	today := s.calendar.Today()
	habits, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}

	res := &RollResult{Today: today, Reset: []string{}}
	for _, h := range habits {
		if changed, _ := calendar.HasDayChanged(h.LastResetDate, today); !changed {
			continue
		}
		_, reset, err := s.ResetForNewDay(ctx, userID, h.ID)
		if err != nil {
			if errors.Is(err, ErrHabitNotFound) {
				continue
			}
			return nil, err
		}
		if reset {
			res.Reset = append(res.Reset, h.ID)
		}
	}

	if len(res.Reset) > 0 {
		s.logger.Info("day rolled over", "user_id", userID, "today", today.String(), "habits_reset", len(res.Reset))
	}
	return res, nil
}

func (s *Service) touch(h Habit, fromVersion int64) Habit {
	h.UpdatedAt = s.calendar.Now()
	h.Version = fromVersion + 1
	return h
}

func (s *Service) retryTx(ctx context.Context, fn func(repo Repository) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		s.logger.Debug("habit version conflict, retrying", "attempt", attempt+1)
	}
	return err
}

func (s *Service) logActivity(ctx context.Context, userID int64, typ activity.ActivityType, habitID, summary string) {
	if s.activities == nil {
		return
	}
	id := habitID
	if err := s.activities.Log(ctx, userID, &activity.ActivityEntry{
		HabitID:      &id,
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    s.calendar.Now(),
	}); err != nil {
		s.logger.Warn("failed to log habit activity", "type", typ, "habit_id", habitID, "error", err)
	}
}

// NormalizeKind maps a wire value onto a Kind; empty stays empty.
func NormalizeKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindStandard, KindCounter, KindTally:
		return k, nil
	default:
		return "", ErrInvalidInput
	}
}

func mapNotFound(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrHabitNotFound
	case errors.Is(err, ErrHabitNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func mapConflict(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrHabitNotFound), errors.Is(err, ErrMaxCompletionsReached),
		errors.Is(err, ErrNoCompletionToRemove), errors.Is(err, ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

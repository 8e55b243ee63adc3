package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
)

// HabitResponse is the wire form of a habit and today's progress.
type HabitResponse struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	BaseTitle         string         `json:"base_title"`
	Kind              habit.Kind     `json:"kind"`
	FrequencyType     string         `json:"frequency_type"`
	FrequencyInterval int            `json:"frequency_interval"`
	CompletionsPerDay int            `json:"completions_per_day"`
	CompletionsToday  int            `json:"completions_today"`
	TotalCompletions  int            `json:"total_completions"`
	Level             int            `json:"level"`
	IsComplete        bool           `json:"is_complete"`
	CounterCurrent    int            `json:"counter_current,omitempty"`
	CounterTotal      int            `json:"counter_total,omitempty"`
	LastResetDate     *calendar.Date `json:"last_reset_date,omitempty"`
	Version           int64          `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewHabitResponse converts a habit.
func NewHabitResponse(h habit.Habit) HabitResponse {
	snap := h.Snapshot()
	return HabitResponse{
		ID:                h.ID,
		Title:             h.DisplayTitle(),
		BaseTitle:         h.Title,
		Kind:              h.Kind,
		FrequencyType:     string(h.Frequency.Kind),
		FrequencyInterval: h.Frequency.Interval,
		CompletionsPerDay: snap.CompletionsPerDay,
		CompletionsToday:  snap.CompletionsToday,
		TotalCompletions:  snap.TotalCompletions,
		Level:             snap.Level,
		IsComplete:        snap.IsComplete,
		CounterCurrent:    h.CounterCurrent,
		CounterTotal:      h.CounterTotal,
		LastResetDate:     h.LastResetDate,
		Version:           h.Version,
		CreatedAt:         h.CreatedAt,
	}
}

type createHabitRequest struct {
	Title             string `json:"title"`
	Kind              string `json:"kind"`
	FrequencyType     string `json:"frequency_type"`
	FrequencyInterval *int   `json:"frequency_interval"`
	CompletionsPerDay int    `json:"completions_per_day"`
	CounterTotal      int    `json:"counter_total"`
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body createHabitRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	kind, err := habit.NormalizeKind(body.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	freq := recurrence.Rule{}
	if body.FrequencyType != "" || body.FrequencyInterval != nil {
		freqType := body.FrequencyType
		if freqType == "" {
			freqType = string(recurrence.KindDaily)
		}
		if freq, err = recurrence.NewRule(freqType, body.FrequencyInterval); err != nil {
			writeError(w, err)
			return
		}
	}

	h, err := s.habits.Create(r.Context(), uid, habit.CreateRequest{
		Title:             body.Title,
		Kind:              kind,
		Frequency:         freq,
		CompletionsPerDay: body.CompletionsPerDay,
		CounterTotal:      body.CounterTotal,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewHabitResponse(*h))
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := s.habits.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]HabitResponse, 0, len(list))
	for _, h := range list {
		out = append(out, NewHabitResponse(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": out})
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	h, err := s.habits.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewHabitResponse(*h))
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.habits.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordHabitCompletion(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	h, err := s.habits.RecordCompletion(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewHabitResponse(*h))
}

func (s *Server) removeHabitCompletion(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	h, err := s.habits.RemoveCompletion(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewHabitResponse(*h))
}

func (s *Server) resetHabit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	h, reset, err := s.habits.ResetForNewDay(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habit": NewHabitResponse(*h), "reset": reset})
}

func (s *Server) rollDay(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := s.habits.RollDay(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := activity.ListActivityOptions{}
	if v := q.Get("task_id"); v != "" {
		opts.TaskID = &v
	}
	if v := q.Get("habit_id"); v != "" {
		opts.HabitID = &v
	}
	if v := q.Get("type"); v != "" {
		typ := activity.ActivityType(v)
		opts.ActivityType = &typ
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.activity.GetRecentActivity(r.Context(), uid, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

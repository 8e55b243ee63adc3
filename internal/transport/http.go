package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/task"
)

// TaskService defines task operations needed by the REST API.
type TaskService interface {
	Create(ctx context.Context, userID int64, req task.CreateRequest) (*task.Task, error)
	Get(ctx context.Context, userID int64, id string) (*task.Task, error)
	List(ctx context.Context, userID int64, opts task.ListOptions) ([]task.Task, error)
	Update(ctx context.Context, userID int64, req task.UpdateRequest) (*task.Task, error)
	Delete(ctx context.Context, userID int64, id string) error
	MarkComplete(ctx context.Context, userID int64, req task.CompleteRequest) (*task.CompleteResult, error)
	MarkIncomplete(ctx context.Context, userID int64, id string) (*task.Task, error)
	Today() calendar.Date
}

// HabitService defines habit operations needed by the REST API.
type HabitService interface {
	Create(ctx context.Context, userID int64, req habit.CreateRequest) (*habit.Habit, error)
	Get(ctx context.Context, userID int64, id string) (*habit.Habit, error)
	List(ctx context.Context, userID int64) ([]habit.Habit, error)
	Delete(ctx context.Context, userID int64, id string) error
	RecordCompletion(ctx context.Context, userID int64, id string) (*habit.Habit, error)
	RemoveCompletion(ctx context.Context, userID int64, id string) (*habit.Habit, error)
	ResetForNewDay(ctx context.Context, userID int64, id string) (*habit.Habit, bool, error)
	RollDay(ctx context.Context, userID int64) (*habit.RollResult, error)
}

// ActivityService defines activity operations needed by the REST API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, userID int64, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by the REST API.
type Services struct {
	Tasks    TaskService
	Habits   HabitService
	Activity ActivityService
}

// Options configures the router.
type Options struct {
	Services Services
	// UserMiddleware resolves the calling user; AuthMiddleware or
	// HeaderUserMiddleware.
	UserMiddleware func(http.Handler) http.Handler
	// MCP, when set, is mounted at /mcp behind UserMiddleware.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	tasks    TaskService
	habits   HabitService
	activity ActivityService
	logger   *slog.Logger
}

// NewServer creates an HTTP router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	users := opts.UserMiddleware
	if users == nil {
		users = HeaderUserMiddleware(1)
	}

	srv := &Server{
		tasks:    opts.Services.Tasks,
		habits:   opts.Services.Habits,
		activity: opts.Services.Activity,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(users)

		r.Route("/api", func(r chi.Router) {
			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", srv.createTask)
				r.Get("/", srv.listTasks)
				r.Get("/{id}", srv.getTask)
				r.Patch("/{id}", srv.updateTask)
				r.Delete("/{id}", srv.deleteTask)
				r.Post("/{id}/complete", srv.completeTask)
				r.Post("/{id}/incomplete", srv.reopenTask)
			})
			r.Route("/habits", func(r chi.Router) {
				r.Post("/", srv.createHabit)
				r.Get("/", srv.listHabits)
				r.Get("/{id}", srv.getHabit)
				r.Delete("/{id}", srv.deleteHabit)
				r.Post("/{id}/completions", srv.recordHabitCompletion)
				r.Delete("/{id}/completions", srv.removeHabitCompletion)
				r.Post("/{id}/reset", srv.resetHabit)
			})
			r.Post("/day/roll", srv.rollDay)
			r.Get("/activity", srv.listActivity)
		})

		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
			r.Handle("/mcp/*", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// userID reads the user placed in context by the user middleware.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, ErrUnauthorized)
	}
	return id, ok
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

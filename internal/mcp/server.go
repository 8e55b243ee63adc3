package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/transport"
)

// TaskService defines task operations needed by MCP.
type TaskService interface {
	Create(ctx context.Context, userID int64, req task.CreateRequest) (*task.Task, error)
	List(ctx context.Context, userID int64, opts task.ListOptions) ([]task.Task, error)
	MarkComplete(ctx context.Context, userID int64, req task.CompleteRequest) (*task.CompleteResult, error)
	MarkIncomplete(ctx context.Context, userID int64, id string) (*task.Task, error)
	Today() calendar.Date
}

// HabitService defines habit operations needed by MCP.
type HabitService interface {
	Create(ctx context.Context, userID int64, req habit.CreateRequest) (*habit.Habit, error)
	List(ctx context.Context, userID int64) ([]habit.Habit, error)
	RecordCompletion(ctx context.Context, userID int64, id string) (*habit.Habit, error)
	RemoveCompletion(ctx context.Context, userID int64, id string) (*habit.Habit, error)
	RollDay(ctx context.Context, userID int64) (*habit.RollResult, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Tasks  TaskService
	Habits HabitService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      transport.UserResolver
	AuthEnabled   bool
	DefaultUserID int64
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DefaultUserID <= 0 {
		cfg.DefaultUserID = 1
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "routine",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Stdio is a local, single-user transport.
	switch {
	case cfg.TransportMode == "stdio":
		server.AddReceivingMiddleware(defaultUserMiddleware(cfg.DefaultUserID))
	case cfg.AuthEnabled:
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	default:
		server.AddReceivingMiddleware(headerUserMiddleware(cfg.DefaultUserID))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}

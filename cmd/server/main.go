package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/config"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/mcp"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/rpggio/routine/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	cal, err := calendar.NewResolver(cfg.Calendar.TimeZone, nil)
	if err != nil {
		logger.Error("invalid time zone", "timezone", cfg.Calendar.TimeZone, "error", err)
		os.Exit(1)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	activityRepo := sqlite.NewActivityRepository(db)
	taskSvc := task.NewService(sqlite.NewTaskRepository(db), activityRepo, cal, logger)
	habitSvc := habit.NewService(sqlite.NewHabitRepository(db), activityRepo, cal, logger)
	activitySvc := activity.NewService(activityRepo, logger)
	keys := sqlite.NewAPIKeyRepository(db)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Tasks:  taskSvc,
			Habits: habitSvc,
		},
		Resolver:      keys,
		AuthEnabled:   cfg.Auth.Enabled,
		DefaultUserID: cfg.Auth.DefaultUserID,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	logger.Info("calendar", "timezone", cal.Location().String(), "today", cal.Today().String())

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	users := transport.HeaderUserMiddleware(cfg.Auth.DefaultUserID)
	if cfg.Auth.Enabled {
		users = transport.AuthMiddleware(keys)
	}
	router := transport.NewServer(transport.Options{
		Services: transport.Services{
			Tasks:    taskSvc,
			Habits:   habitSvc,
			Activity: activitySvc,
		},
		UserMiddleware: users,
		MCP:            newMCPHandler(mcpServer),
		Logger:         logger,
	})
	runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func newMCPHandler(mcpServer *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

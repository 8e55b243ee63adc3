// Package testserver runs the full HTTP stack over an in-memory database
// for end-to-end tests.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/activity"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/mcp"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/rpggio/routine/internal/transport"
	"github.com/stretchr/testify/require"
)

// Start is the fake clock's initial instant.
var Start = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Clock  *calendar.FakeClock
	Token  string
	UserID int64
}

// New starts an authenticated server whose only key maps token to userID.
func New(t *testing.T, token string, userID int64) *TestServer {
	t.Helper()

	db, err := sqlite.OpenMemory()
	require.NoError(t, err)

	clock := calendar.NewFakeClock(Start)
	cal := calendar.NewResolverIn(time.UTC, clock)

	activityRepo := sqlite.NewActivityRepository(db)
	taskSvc := task.NewService(sqlite.NewTaskRepository(db), activityRepo, cal, nil)
	habitSvc := habit.NewService(sqlite.NewHabitRepository(db), activityRepo, cal, nil)
	activitySvc := activity.NewService(activityRepo, nil)
	keys := sqlite.NewAPIKeyRepository(db)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Tasks: taskSvc, Habits: habitSvc},
		Resolver:      keys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	router := transport.NewServer(transport.Options{
		Services: transport.Services{
			Tasks:    taskSvc,
			Habits:   habitSvc,
			Activity: activitySvc,
		},
		UserMiddleware: transport.AuthMiddleware(keys),
		MCP:            mcpHandler,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server: server,
		DB:     db,
		Clock:  clock,
		Token:  token,
		UserID: userID,
	}

	require.NoError(t, ts.AddAPIKey(token, userID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers another token.
func (ts *TestServer) AddAPIKey(token string, userID int64) error {
	return sqlite.NewAPIKeyRepository(ts.DB).Add(context.Background(), token, userID, "test")
}

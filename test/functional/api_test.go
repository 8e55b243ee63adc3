package functional_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rpggio/routine/internal/domain/task"
	"github.com/rpggio/routine/internal/testserver"
	"github.com/rpggio/routine/internal/transport"
	"github.com/stretchr/testify/require"
)

func apiCall(t *testing.T, ts *testserver.TestServer, token, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFunctional_Authentication(t *testing.T) {
	ts := testserver.New(t, "token", 1)

	var apiErr struct {
		Error transport.APIError `json:"error"`
	}
	status := apiCall(t, ts, "", http.MethodGet, "/api/tasks", nil, &apiErr)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", apiErr.Error.Code)

	status = apiCall(t, ts, "wrong", http.MethodGet, "/api/tasks", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status = apiCall(t, ts, "token", http.MethodGet, "/api/tasks", nil, nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFunctional_WeeklyTaskAcrossDays(t *testing.T) {
	ts := testserver.New(t, "token", 1)

	var created transport.TaskResponse
	status := apiCall(t, ts, "token", http.MethodPost, "/api/tasks", map[string]any{
		"title":           "Take out recycling",
		"due_date":        "2024-03-05",
		"recurrence_type": "weekly",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, task.StateActive, created.State)

	var done transport.CompleteResponse
	status = apiCall(t, ts, "token", http.MethodPost, "/api/tasks/"+created.ID+"/complete", nil, &done)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, task.StateComplete, done.Task.State)
	require.Equal(t, "2024-03-12", done.Successor.DueDate.String())

	// Three weeks pass without touching the successor.
	ts.Clock.Advance(21 * 24 * time.Hour)

	var first transport.TaskResponse
	status = apiCall(t, ts, "token", http.MethodGet, "/api/tasks/"+created.ID, nil, &first)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, task.StateCompleteOverdueSuccessor, first.State)
	require.True(t, first.PresentedActive)

	var advanced transport.CompleteResponse
	status = apiCall(t, ts, "token", http.MethodPost, "/api/tasks/"+created.ID+"/complete", nil, &advanced)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, advanced.Successor)
	require.Equal(t, "2024-03-19", advanced.Successor.DueDate.String())
	require.Equal(t, task.StateCompleteOverdueSuccessor, advanced.Task.State)
}

func TestFunctional_UserIsolation(t *testing.T) {
	ts := testserver.New(t, "alice", 1)
	require.NoError(t, ts.AddAPIKey("bob", 2))

	var h transport.HabitResponse
	status := apiCall(t, ts, "alice", http.MethodPost, "/api/habits", map[string]any{"title": "Read"}, &h)
	require.Equal(t, http.StatusCreated, status)

	status = apiCall(t, ts, "bob", http.MethodGet, "/api/habits/"+h.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	var list struct {
		Habits []transport.HabitResponse `json:"habits"`
	}
	status = apiCall(t, ts, "bob", http.MethodGet, "/api/habits", nil, &list)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, list.Habits)
}

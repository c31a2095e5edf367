package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supernovae/synesis/internal/convmemory"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// echoingGraph builds a single-stage graph whose classifier stage
// copies the task description into GeneratedCode and terminates
// straight to respond, enough to drive the handler without any real
// stage implementations.
func echoingGraph() *routing.Graph {
	stages := map[string]routing.Stage{
		routing.StageClassifier: routing.StageFunc{
			StageName: routing.StageClassifier,
			RunFn: func(_ context.Context, s *state.State) (state.StageDelta, error) {
				text := "echo: " + s.TaskDescription
				return state.StageDelta{GeneratedCode: &text}, nil
			},
		},
	}
	routes := map[string]routing.RouteFunc{
		routing.StageClassifier: func(*state.State) string { return routing.StageRespond },
	}
	return routing.NewGraph(stages, routes)
}

func newTestServer() *Server {
	return NewServer(echoingGraph(), convmemory.NewInMemoryStore(10, 100, time.Hour, nil), "synesis-v1", 5)
}

func TestChatCompletions_NonStream(t *testing.T) {
	s := newTestServer()
	body := `{"model":"synesis-v1","messages":[{"role":"user","content":"fix the bug"}]}`
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "echo: fix the bug")
	assert.Contains(t, rec.Body.String(), `"object":"chat.completion"`)
}

func TestChatCompletions_EmptyMessagesIsBadRequest(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestChatCompletions_Stream(t *testing.T) {
	s := newTestServer()
	body := `{"messages":[{"role":"user","content":"stream this"}],"stream":true}`
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "event: status")
	assert.Contains(t, out, `"stage":"classifier"`)
	assert.Contains(t, out, "data: [DONE]")
}

func TestChatCompletions_UserFieldWinsOverBearerToken(t *testing.T) {
	s := newTestServer()
	body := `{"messages":[{"role":"user","content":"hi"}],"user":"alice"}`
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	turns, err := s.memory.History(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Content)
}

func TestChatCompletionsHandler_ShuttingDownRejectsRequest(t *testing.T) {
	s := newTestServer()
	s.shutdown = true
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, 503, rec.Code)
}

func TestChunkText(t *testing.T) {
	chunks := chunkText("hello world", 5)
	assert.Equal(t, []string{"hello", " worl", "d"}, chunks)
	assert.Nil(t, chunkText("", 5))
}

func TestResponseText_PrefersErrorThenDiffThenCode(t *testing.T) {
	s := &state.State{Error: "needs clarification: which file?"}
	assert.Equal(t, "needs clarification: which file?", responseText(s))

	s = &state.State{UnifiedDiff: "--- a\n+++ b"}
	assert.Equal(t, "--- a\n+++ b", responseText(s))

	s = &state.State{GeneratedCode: "package main"}
	assert.Equal(t, "package main", responseText(s))

	s = &state.State{}
	assert.Equal(t, "(no response produced)", responseText(s))
}

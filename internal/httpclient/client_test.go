package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollaborator_PostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	pool := NewPool(5 * time.Second)
	collab := NewCollaborator("test-service", pool)

	body, status, err := collab.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "ok")
}

func TestCollaborator_PostJSON_NonOKStatusIsNotRetriedAsError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	pool := NewPool(5 * time.Second)
	collab := NewCollaborator("test-service-400", pool)

	_, status, err := collab.PostJSON(context.Background(), srv.URL, map[string]string{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 1, calls)
}

func TestCollaborator_PostJSON_UnreachableHostReturnsError(t *testing.T) {
	pool := NewPool(time.Second)
	collab := NewCollaborator("test-service-unreachable", pool)

	_, _, err := collab.PostJSON(context.Background(), "http://127.0.0.1:1", map[string]string{}, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestCollaborator_DoStream_ReturnsLiveResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	pool := NewPool(5 * time.Second)
	collab := NewCollaborator("test-stream-service", pool)

	resp, err := collab.DoStream(context.Background(), srv.URL, map[string]string{})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

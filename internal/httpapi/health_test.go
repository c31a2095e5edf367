package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_AlwaysHealthy(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestReadinessHandler_HealthyWhenWired(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/health/readiness", nil)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"routing_graph":{"status":"healthy"}`)
}

func TestReadinessHandler_UnhealthyWhenShuttingDown(t *testing.T) {
	s := newTestServer()
	s.shutdown = true
	req := httptest.NewRequest("GET", "/health/readiness", nil)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 503, rec.Code)
}

func TestReadinessHandler_UnhealthyWhenNoGraph(t *testing.T) {
	s := NewServer(nil, nil, "synesis-v1", 5)
	req := httptest.NewRequest("GET", "/health/readiness", nil)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, 503, rec.Code)
}

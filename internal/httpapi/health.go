package httpapi

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]healthCheck `json:"checks"`
}

// healthHandler handles GET /health, a bare liveness probe: the
// process is up and able to serve HTTP. It deliberately checks
// nothing beyond that — mirroring the teacher's own health handler
// comment that external dependencies must never cause an orchestrator
// to restart this process.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{
		Status: healthStatusHealthy,
		Checks: map[string]healthCheck{"process": {Status: healthStatusHealthy}},
	})
}

// readinessHandler handles GET /health/readiness: can this instance
// actually serve a traversal right now. Checked components: the
// compiled routing graph exists, the conversation-memory store
// responds, and shutdown has not begun.
func (s *Server) readinessHandler(c *echo.Context) error {
	checks := make(map[string]healthCheck)
	status := healthStatusHealthy

	if s.shutdown {
		status = healthStatusUnhealthy
		checks["shutdown"] = healthCheck{Status: healthStatusUnhealthy, Message: "graceful shutdown in progress"}
	}

	if s.graph == nil {
		status = healthStatusUnhealthy
		checks["routing_graph"] = healthCheck{Status: healthStatusUnhealthy, Message: "no graph configured"}
	} else {
		checks["routing_graph"] = healthCheck{Status: healthStatusHealthy}
	}

	if s.memory != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if _, err := s.memory.History(ctx, "__readiness_probe__", 0); err != nil {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["conversation_memory"] = healthCheck{Status: healthStatusDegraded, Message: err.Error()}
		} else {
			checks["conversation_memory"] = healthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, &healthResponse{Status: status, Checks: checks})
}

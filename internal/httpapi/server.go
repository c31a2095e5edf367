// Package httpapi implements Synesis's OpenAI-compatible Client API
// (spec §6), grounded in the teacher's pkg/api: an echo/v5 Server
// struct whose collaborators are all passed to NewServer,
// generalized from tarsy's session/chat/dashboard surface to a single
// chat-completions endpoint fronting one routing.Graph traversal per
// request, plus /v1/models and /health* liveness/readiness probes.
package httpapi

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/google/uuid"

	"github.com/supernovae/synesis/internal/convmemory"
	"github.com/supernovae/synesis/internal/routing"
)

// Server is the HTTP API server fronting one compiled routing.Graph.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	graph    *routing.Graph
	memory   convmemory.Store
	model    string
	maxIter  int
	shutdown bool
}

// NewServer builds the echo/v5 server and registers every route.
// model is the single identifier GET /v1/models reports and the
// default model name stamped onto completion responses when the
// request omits one.
func NewServer(graph *routing.Graph, memory convmemory.Store, model string, maxIterations int) *Server {
	e := echo.New()
	e.HideBanner = true

	s := &Server{
		echo:    e,
		graph:   graph,
		memory:  memory,
		model:   model,
		maxIter: maxIterations,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(requestIDMiddleware)

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/health/readiness", s.readinessHandler)

	v1 := s.echo.Group("/v1")
	v1.POST("/chat/completions", s.chatCompletionsHandler)
	v1.GET("/models", s.modelsHandler)
}

// requestIDMiddleware stamps every response with an
// X-Synesis-Request-ID, generating one when the caller did not supply
// it — the correlation ID threaded into ToolRef.RequestID and traced
// via OpenTelemetry across every collaborator call this request makes.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		reqID := c.Request().Header.Get("X-Synesis-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Response().Header().Set("X-Synesis-Request-ID", reqID)
		c.Set("request_id", reqID)
		return next(c)
	}
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests to bind an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server and marks the Server
// as no longer accepting new traversals, so in-flight requests that
// reach chatCompletionsHandler after the signal fail fast with 503
// instead of starting a multi-second traversal doomed to be killed
// mid-flight.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown = true
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Package routing implements the traversal state machine: a fixed set
// of named stages wired by pure routing functions, walked by
// RunTraversal with per-stage timeouts and structured timeout traces.
package routing

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// Stage names, used both as map keys and as the "next" value routing
// functions return.
const (
	StageClassifier    = "classifier"
	StageSupervisor    = "supervisor"
	StagePlanner       = "planner"
	StageContextCurator = "context_curator"
	StageWorker        = "worker"
	StageIntegrityGate = "integrity_gate"
	StageSandbox       = "sandbox"
	StageLSP           = "lsp"
	StageCritic        = "critic"
	StageRespond       = "respond"
)

// Stage is the single explicit-interface contract every node in the
// traversal satisfies, matching the original's single-async-function
// node shape.
type Stage interface {
	Name() string
	Timeout() time.Duration
	Run(ctx context.Context, s *state.State) (state.StageDelta, error)
}

// RouteFunc decides the next stage name from the current state. Route
// functions are pure: no I/O, no mutation.
type RouteFunc func(s *state.State) string

// StageFunc adapts a plain function into a Stage, for stages with no
// internal configuration beyond their run logic.
type StageFunc struct {
	StageName string
	TimeoutD  time.Duration
	RunFn     func(ctx context.Context, s *state.State) (state.StageDelta, error)
}

func (f StageFunc) Name() string             { return f.StageName }
func (f StageFunc) Timeout() time.Duration   { return f.TimeoutD }
func (f StageFunc) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	return f.RunFn(ctx, s)
}

package stages

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/contextpack"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// ContextCuratorStage wraps contextpack.Builder as a Stage, re-curating
// on every retry (spec §4.2). It never terminates a traversal on its
// own — routing.RouteAfterContextCurator always proceeds to the worker.
type ContextCuratorStage struct {
	Builder *contextpack.Builder
}

func NewContextCuratorStage(builder *contextpack.Builder) *ContextCuratorStage {
	return &ContextCuratorStage{Builder: builder}
}

func (c *ContextCuratorStage) Name() string           { return routing.StageContextCurator }
func (c *ContextCuratorStage) Timeout() time.Duration { return 15 * time.Second }

func (c *ContextCuratorStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	start := time.Now()
	pack := c.Builder.Build(ctx, s)

	reasoning := "curated " + itoa(len(pack.Pinned)) + " pinned, " + itoa(len(pack.Retrieved)) + " retrieved chunks"
	if pack.BudgetAlert != "" {
		reasoning += "; " + pack.BudgetAlert
	}

	return state.StageDelta{
		ContextPack: pack,
		NewNodeTraces: []state.NodeTrace{{
			NodeName:  routing.StageContextCurator,
			Reasoning: reasoning,
			Outcome:   state.NodeOutcomeSuccess,
			LatencyMS: float64(time.Since(start).Milliseconds()),
			Timestamp: time.Now(),
		}},
	}, nil
}

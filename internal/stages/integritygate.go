package stages

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/integritygate"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// IntegrityGateStage wraps integritygate.Gate as a Stage: a
// deterministic, short-circuiting check of what the worker produced,
// never of whether it is good (spec §4.4). A failure routes back to
// context curation and the worker with actionable feedback; it never
// advances the iteration counter on its own.
type IntegrityGateStage struct {
	Gate *integritygate.Gate
}

func NewIntegrityGateStage(gate *integritygate.Gate) *IntegrityGateStage {
	return &IntegrityGateStage{Gate: gate}
}

func (g *IntegrityGateStage) Name() string           { return routing.StageIntegrityGate }
func (g *IntegrityGateStage) Timeout() time.Duration { return 5 * time.Second }

func (g *IntegrityGateStage) Run(_ context.Context, s *state.State) (state.StageDelta, error) {
	start := time.Now()
	failure := g.Gate.Check(integritygate.Input{
		GeneratedCode:        s.GeneratedCode,
		TargetLanguage:       s.TargetLanguage,
		FilesTouched:         s.FilesTouched,
		PatchOps:             s.PatchOps,
		UnifiedDiff:          s.UnifiedDiff,
		TouchedFilesManifest: s.TouchedFilesManifest,
		RevisionStrategy:     s.RevisionStrategy,
	})

	passed := failure == nil
	reasoning := "passed"
	var feedback string
	if failure != nil {
		reasoning = string(failure.Category) + ": " + failure.Evidence
		feedback = failure.Remediation
	}

	delta := state.StageDelta{
		IntegrityGatePassed: &passed,
		NewNodeTraces: []state.NodeTrace{{
			NodeName:  routing.StageIntegrityGate,
			Reasoning: reasoning,
			Outcome:   outcomeFor(passed),
			LatencyMS: float64(time.Since(start).Milliseconds()),
			Timestamp: time.Now(),
		}},
	}
	if feedback != "" {
		delta.CriticFeedback = &feedback
	}
	return delta, nil
}

func outcomeFor(passed bool) state.NodeOutcome {
	if passed {
		return state.NodeOutcomeSuccess
	}
	return state.NodeOutcomeNeedsRevision
}

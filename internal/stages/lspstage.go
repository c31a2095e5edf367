package stages

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/lspclient"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// LSPStage wraps lspclient.Client: a language-server diagnostic pass
// that never blocks the traversal. It is reached from two different
// places in the graph (pre-execution in "always" mode, straight from
// integrity_gate; post-failure in "on_failure" mode, from sandbox) and
// tells RouteAfterLSP which by reading s.CurrentNode, set by the graph
// to the just-completed stage before this one ran.
type LSPStage struct {
	Client lspclient.Client
}

func NewLSPStage(client lspclient.Client) *LSPStage {
	return &LSPStage{Client: client}
}

func (l *LSPStage) Name() string           { return routing.StageLSP }
func (l *LSPStage) Timeout() time.Duration { return 20 * time.Second }

func (l *LSPStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	start := time.Now()
	fromIntegrityGate := s.CurrentNode == routing.StageIntegrityGate

	result, err := l.Client.Analyze(ctx, s.GeneratedCode, s.TargetLanguage)
	reasoning := "lsp_analysis_skipped"
	var diagnostics []state.Diagnostic
	if err == nil && result != nil && !result.Skipped {
		diagnostics = result.Diagnostics
		reasoning = "engine=" + result.Engine + " diagnostics=" + itoa(len(diagnostics))
	} else if err != nil {
		reasoning = "lsp_analysis_skipped: " + err.Error()
	}

	delta := state.StageDelta{
		LSPDiagnostics: diagnostics,
		NewNodeTraces: []state.NodeTrace{{
			NodeName:  routing.StageLSP,
			Reasoning: reasoning,
			Outcome:   state.NodeOutcomeSuccess,
			LatencyMS: float64(time.Since(start).Milliseconds()),
			Timestamp: time.Now(),
		}},
	}
	if fromIntegrityGate {
		next := routing.StageSandbox
		delta.NextNode = &next
	}
	return delta, nil
}

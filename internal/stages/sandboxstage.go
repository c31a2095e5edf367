package stages

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/failurecache"
	"github.com/supernovae/synesis/internal/revisionloop"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/sandbox"
	"github.com/supernovae/synesis/internal/state"
)

// SandboxStage wraps sandbox.Executor: runs the generated code, derives
// its failure_type and fingerprint (spec §4.5), advances the iteration
// counter only on a genuinely new failure, and records the outcome in
// the fail-fast cache for future traversals.
type SandboxStage struct {
	Executor  *sandbox.Executor
	FailCache *failurecache.FailFastCache
	Budget    *sandbox.BudgetTracker
}

func NewSandboxStage(executor *sandbox.Executor, failCache *failurecache.FailFastCache, budget *sandbox.BudgetTracker) *SandboxStage {
	return &SandboxStage{Executor: executor, FailCache: failCache, Budget: budget}
}

func (sb *SandboxStage) Name() string           { return routing.StageSandbox }
func (sb *SandboxStage) Timeout() time.Duration { return 90 * time.Second }

func (sb *SandboxStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	start := time.Now()

	if sb.Budget != nil && sb.Budget.ExceededMinutes() {
		respond := routing.StageRespond
		errMsg := "sandbox time budget exhausted for this traversal"
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StageSandbox, errMsg, time.Since(start))},
		}, nil
	}

	result, err := sb.Executor.Execute(ctx, sandbox.ExecuteRequest{
		Code:         s.GeneratedCode,
		PatchOps:     s.PatchOps,
		Language:     s.TargetLanguage,
		ContextFiles: s.FilesTouched,
	})
	if sb.Budget != nil {
		sb.Budget.ConsumeMinutes(time.Since(start))
	}
	if err != nil {
		respond := routing.StageRespond
		errMsg := "sandbox execution failed: " + err.Error()
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StageSandbox, err.Error(), time.Since(start))},
		}, nil
	}

	failureType := sandbox.Classify(result, s.LSPDiagnostics)
	exitCode := result.ExitCode
	sameFailure := false
	var newFailureIDs []string

	if exitCode != 0 {
		fp := sandbox.Fingerprint(failureType, exitCode, result.Stderr)
		sameFailure = sandbox.SameFailure(fp, s.FailureIDsSeen)
		if !sameFailure {
			newFailureIDs = []string{fp}
		}
		if sb.FailCache != nil {
			sb.FailCache.Put(s.TaskDescription, s.TargetLanguage, failurecache.OutcomeFailure, s.GeneratedCode, result.Stderr)
		}
	} else if sb.FailCache != nil {
		sb.FailCache.Put(s.TaskDescription, s.TargetLanguage, failurecache.OutcomeSuccess, s.GeneratedCode, "")
	}

	fingerprintNew := exitCode != 0 && !sameFailure
	revisionloop.AdvanceIteration(s, exitCode, fingerprintNew)

	reasoning := "exit=" + itoa(exitCode)
	if failureType != "" {
		reasoning += " failure_type=" + string(failureType)
	}

	delta := state.StageDelta{
		ExecutionResult:         &result.Stdout,
		ExecutionResultJSON:     &result.RawJSON,
		ExecutionExitCode:       &exitCode,
		ExecutionLintPassed:     &result.Lint.Passed,
		ExecutionSecurityPassed: &result.Security.Passed,
		SandboxSameFailure:      &sameFailure,
		NewFailureIDsSeen:       newFailureIDs,
		NewNodeTraces: []state.NodeTrace{{
			NodeName:  routing.StageSandbox,
			Reasoning: reasoning,
			Outcome:   outcomeFor(exitCode == 0),
			LatencyMS: float64(time.Since(start).Milliseconds()),
			Timestamp: time.Now(),
		}},
	}
	if failureType != "" {
		delta.FailureType = &failureType
	}
	return delta, nil
}

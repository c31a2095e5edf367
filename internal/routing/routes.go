package routing

import "github.com/supernovae/synesis/internal/state"

// RouteAfterClassifier: a trivial task without a manual override skips
// the supervisor and planner entirely via a synthesized plan (the
// classifier stage sets BypassSupervisor for that case); everything
// else goes to the supervisor for scoping. UI-helper rejection happens
// inside the classifier stage itself (it sets Error and NextNode
// directly), so it is not a distinct branch here.
func RouteAfterClassifier(s *state.State) string {
	if s.Error != "" || s.NextNode == StageRespond {
		return StageRespond
	}
	if s.BypassSupervisor {
		return StageContextCurator
	}
	return StageSupervisor
}

// RouteAfterSupervisor: a clarification question always terminates to
// respond carrying the question. Otherwise route_to names the next
// stage directly. SupervisorGuard mode forbids downgrading to the
// planner (a rejected critic's re-entry may only clarify or forward).
func RouteAfterSupervisor(s *state.State) string {
	if s.Error != "" {
		return StageRespond
	}
	switch s.NextNode {
	case StagePlanner:
		if s.SupervisorGuard {
			return StageWorker
		}
		return StagePlanner
	case StageWorker:
		return StageWorker
	default:
		return StageRespond
	}
}

// RouteAfterPlanner: a plan requiring user acknowledgment (has steps
// and needs approval) terminates to respond; otherwise proceeds to
// context curation.
func RouteAfterPlanner(s *state.State) string {
	if s.NextNode == StageRespond {
		return StageRespond
	}
	return StageContextCurator
}

// RouteAfterContextCurator always proceeds to the worker; the curator
// never terminates a traversal on its own.
func RouteAfterContextCurator(s *state.State) string {
	return StageWorker
}

// RouteAfterWorker: needs_scope_expansion returns control to the
// supervisor to widen scope; any other stop_reason terminates;
// needs_input terminates; otherwise the integrity gate runs next.
func RouteAfterWorker(s *state.State) string {
	if s.StopReason == state.StopReasonNeedsScopeExpansion {
		return StageSupervisor
	}
	if s.StopReason != state.StopReasonNone {
		return StageRespond
	}
	if s.NextNode == StageRespond {
		return StageRespond
	}
	return StageIntegrityGate
}

// LSPMode controls when the lsp stage runs relative to the sandbox.
type LSPMode string

const (
	LSPModeOff       LSPMode = "off"
	LSPModeOnFailure LSPMode = "on_failure"
	LSPModeAlways    LSPMode = "always"
)

// NewRouteAfterIntegrityGate binds the configured lsp mode into a
// RouteFunc: a pass proceeds to the sandbox — through the lsp stage
// first when pre-execution analysis is configured ("always" mode); a
// failure returns to context curation and the worker without
// advancing iteration.
func NewRouteAfterIntegrityGate(lspMode LSPMode) RouteFunc {
	return func(s *state.State) string {
		if !s.IntegrityGatePassed {
			return StageContextCurator
		}
		if lspMode == LSPModeAlways {
			return StageLSP
		}
		return StageSandbox
	}
}

// NewRouteAfterSandbox binds the configured lsp mode into a RouteFunc:
// a clean exit goes to the critic. Otherwise, at max iterations or on
// a repeated (same-fingerprint) failure, go to the critic in
// postmortem mode instead of retrying. Otherwise route to the lsp
// stage (on-failure mode) or back to context curation and the worker
// for another revision attempt.
func NewRouteAfterSandbox(lspMode LSPMode) RouteFunc {
	return func(s *state.State) string {
		if s.Error != "" {
			return StageRespond
		}
		if s.ExecutionExitCode == nil || *s.ExecutionExitCode == 0 {
			return StageCritic
		}
		if s.IterationCount >= s.MaxIterations {
			return StageCritic
		}
		if s.SandboxSameFailure {
			return StageCritic
		}
		if lspMode == LSPModeOnFailure {
			return StageLSP
		}
		return StageContextCurator
	}
}

// RouteAfterLSP: the lsp stage runs in two different places in the
// graph (pre-execution in "always" mode, post-failure in
// "on_failure" mode) and records which by setting NextNode to
// StageSandbox for the pre-execution case; anything else returns to
// context curation for a revision attempt.
func RouteAfterLSP(s *state.State) string {
	if s.NextNode == StageSandbox {
		return StageSandbox
	}
	return StageContextCurator
}

// RouteAfterCritic: approval terminates. Otherwise, at max iterations,
// terminate as well; else return to the supervisor in guard mode for
// another pass.
func RouteAfterCritic(s *state.State) string {
	if s.Error != "" {
		return StageRespond
	}
	if s.CriticApproved {
		return StageRespond
	}
	if s.IterationCount >= s.MaxIterations {
		return StageRespond
	}
	return StageSupervisor
}

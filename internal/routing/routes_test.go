package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supernovae/synesis/internal/state"
)

func TestRouteAfterClassifier_TrivialGoesToContextCurator(t *testing.T) {
	s := state.New("r1", "u1", "hi", 5)
	s.TaskSize = state.TaskSizeTrivial
	s.BypassSupervisor = true
	assert.Equal(t, StageContextCurator, RouteAfterClassifier(s))
}

func TestRouteAfterClassifier_ComplexGoesToSupervisor(t *testing.T) {
	s := state.New("r1", "u1", "build a thing", 5)
	s.TaskSize = state.TaskSizeComplex
	assert.Equal(t, StageSupervisor, RouteAfterClassifier(s))
}

func TestRouteAfterClassifier_UIHelperGoesToRespond(t *testing.T) {
	s := state.New("r1", "u1", "thanks!", 5)
	s.NextNode = StageRespond
	assert.Equal(t, StageRespond, RouteAfterClassifier(s))
}

func TestRouteAfterSupervisor_ClarificationGoesToRespond(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.Error = "needs_clarification: which repo?"
	assert.Equal(t, StageRespond, RouteAfterSupervisor(s))
}

func TestRouteAfterSupervisor_GuardModeForbidsPlannerDowngrade(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.NextNode = StagePlanner
	s.SupervisorGuard = true
	assert.Equal(t, StageWorker, RouteAfterSupervisor(s))
}

func TestRouteAfterSupervisor_RouteToPlannerWithoutGuard(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.NextNode = StagePlanner
	assert.Equal(t, StagePlanner, RouteAfterSupervisor(s))
}

func TestRouteAfterWorker_ScopeExpansionReturnsToSupervisor(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.StopReason = state.StopReasonNeedsScopeExpansion
	assert.Equal(t, StageSupervisor, RouteAfterWorker(s))
}

func TestRouteAfterWorker_OtherStopReasonTerminates(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.StopReason = state.StopReasonUnsafeRequest
	assert.Equal(t, StageRespond, RouteAfterWorker(s))
}

func TestRouteAfterWorker_DefaultGoesToIntegrityGate(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	assert.Equal(t, StageIntegrityGate, RouteAfterWorker(s))
}

func TestRouteAfterIntegrityGate_FailureReturnsToContextCurator(t *testing.T) {
	route := NewRouteAfterIntegrityGate(LSPModeOff)
	s := state.New("r1", "u1", "x", 5)
	s.IntegrityGatePassed = false
	assert.Equal(t, StageContextCurator, route(s))
}

func TestRouteAfterIntegrityGate_PassGoesToLSPWhenAlwaysMode(t *testing.T) {
	route := NewRouteAfterIntegrityGate(LSPModeAlways)
	s := state.New("r1", "u1", "x", 5)
	s.IntegrityGatePassed = true
	assert.Equal(t, StageLSP, route(s))
}

func TestRouteAfterIntegrityGate_PassGoesToSandboxOtherwise(t *testing.T) {
	route := NewRouteAfterIntegrityGate(LSPModeOnFailure)
	s := state.New("r1", "u1", "x", 5)
	s.IntegrityGatePassed = true
	assert.Equal(t, StageSandbox, route(s))
}

func TestRouteAfterSandbox_CleanExitGoesToCritic(t *testing.T) {
	route := NewRouteAfterSandbox(LSPModeOnFailure)
	s := state.New("r1", "u1", "x", 5)
	zero := 0
	s.ExecutionExitCode = &zero
	assert.Equal(t, StageCritic, route(s))
}

func TestRouteAfterSandbox_MaxIterationsGoesToCriticPostmortem(t *testing.T) {
	route := NewRouteAfterSandbox(LSPModeOnFailure)
	s := state.New("r1", "u1", "x", 2)
	one := 1
	s.ExecutionExitCode = &one
	s.IterationCount = 2
	assert.Equal(t, StageCritic, route(s))
}

func TestRouteAfterSandbox_SameFailureGoesToCriticPostmortem(t *testing.T) {
	route := NewRouteAfterSandbox(LSPModeOnFailure)
	s := state.New("r1", "u1", "x", 5)
	one := 1
	s.ExecutionExitCode = &one
	s.SandboxSameFailure = true
	assert.Equal(t, StageCritic, route(s))
}

func TestRouteAfterSandbox_FailureRoutesToLSPOnFailureMode(t *testing.T) {
	route := NewRouteAfterSandbox(LSPModeOnFailure)
	s := state.New("r1", "u1", "x", 5)
	one := 1
	s.ExecutionExitCode = &one
	assert.Equal(t, StageLSP, route(s))
}

func TestRouteAfterSandbox_FailureRoutesToContextCuratorWhenLSPOff(t *testing.T) {
	route := NewRouteAfterSandbox(LSPModeOff)
	s := state.New("r1", "u1", "x", 5)
	one := 1
	s.ExecutionExitCode = &one
	assert.Equal(t, StageContextCurator, route(s))
}

func TestRouteAfterCritic_ApprovedGoesToRespond(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.CriticApproved = true
	assert.Equal(t, StageRespond, RouteAfterCritic(s))
}

func TestRouteAfterCritic_RejectedGoesToSupervisorGuardMode(t *testing.T) {
	s := state.New("r1", "u1", "x", 5)
	s.CriticApproved = false
	s.IterationCount = 0
	assert.Equal(t, StageSupervisor, RouteAfterCritic(s))
}

func TestRouteAfterCritic_RejectedAtMaxIterationsTerminates(t *testing.T) {
	s := state.New("r1", "u1", "x", 2)
	s.CriticApproved = false
	s.IterationCount = 2
	assert.Equal(t, StageRespond, RouteAfterCritic(s))
}

func TestResumeStageFor(t *testing.T) {
	assert.Equal(t, StageWorker, ResumeStageFor(StageWorker))
	assert.Equal(t, StagePlanner, ResumeStageFor(StagePlanner))
	assert.Equal(t, "", ResumeStageFor("critic"))
	assert.Equal(t, "", ResumeStageFor(""))
}

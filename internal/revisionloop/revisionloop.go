// Package revisionloop enforces the four invariants of spec §4.7 over
// state.State directly, generalizing the teacher's private
// agent.IterationState (CurrentIteration/RecordSuccess/RecordFailure)
// to the richer revision-strategy bookkeeping a sandbox retry cycle
// needs.
package revisionloop

import (
	"github.com/supernovae/synesis/internal/state"
	"github.com/supernovae/synesis/internal/strategy"
)

// AdvanceIteration increments s.IterationCount only on a genuine
// failure cycle: a non-zero sandbox exit whose fingerprint has not
// been seen before. Integrity-gate rejections (which never reach the
// sandbox) and monotonicity regressions must not call this — the
// caller decides, this function only enforces the "when" once called.
func AdvanceIteration(s *state.State, sandboxExitCode int, fingerprintNew bool) {
	if sandboxExitCode == 0 {
		return
	}
	if !fingerprintNew {
		return
	}
	s.Merge(state.StageDelta{IterationIncrement: 1})
}

// RecordStagePassed appends stage to s.StagesPassed, idempotently (no
// duplicate entries), matching the append-only monotonic-merge rule
// already implemented in state.Merge.
func RecordStagePassed(s *state.State, stage string) {
	s.Merge(state.StageDelta{NewStagesPassed: []string{stage}})
}

// EnforceMonotonicity delegates to strategy.CheckMonotonicity using
// the active revision constraint and, on a violation, sets
// s.StrategyViolation without advancing iteration (spec Testable
// Property 3). The caller is responsible for not calling
// AdvanceIteration when this returns true.
func EnforceMonotonicity(s *state.State, newlyFailedStages []string) strategy.ViolationCheck {
	constraint := state.RevisionConstraint{}
	if s.RevisionConstraints != nil {
		constraint = *s.RevisionConstraints
	}
	check := strategy.CheckMonotonicity(
		strategy.Constraint{
			PreserveStages: constraint.Preserve,
			Anchor:         constraint.Anchor,
		},
		s.StagesPassed,
		newlyFailedStages,
		s.RegressionsIntended,
		s.RegressionJustification,
	)
	violated := check.Violated
	s.Merge(state.StageDelta{StrategyViolation: &violated})
	return check
}

// ExhaustedStrategies returns the strategies already attempted this
// traversal, the slice strategy.Select consults to skip them.
func ExhaustedStrategies(s *state.State) []string {
	return s.RevisionStrategiesTried
}

package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/supernovae/synesis/internal/state"
)

func TestSelect_PicksHighestWeightedUntried(t *testing.T) {
	c := Select(state.FailureTypeLint, 0, 5, nil)
	assert.Equal(t, "minimal_fix", c.Name)
}

func TestSelect_SkipsAlreadyTried(t *testing.T) {
	c := Select(state.FailureTypeLint, 1, 5, []string{"minimal_fix"})
	assert.Equal(t, "refactor", c.Name)
}

func TestSelect_LateIterationWithoutRefactorCandidateKeepsNormalPick(t *testing.T) {
	c := Select(state.FailureTypeSecurity, 4, 5, nil)
	assert.Equal(t, "security_fix", c.Name) // refactor isn't a candidate for security, so normal pick
}

func TestSelect_LateIterationPrefersRefactorWhenCandidate(t *testing.T) {
	c := Select(state.FailureTypeRuntime, 4, 5, nil)
	assert.Equal(t, "refactor", c.Name)
}

func TestSelect_AllTriedFallsBackToTopWeighted(t *testing.T) {
	c := Select(state.FailureTypeRuntime, 2, 5, []string{"refactor", "revert_and_patch"})
	assert.Equal(t, "refactor", c.Name)
}

func TestSelect_UnknownFailureUsesDefault(t *testing.T) {
	c := Select(state.FailureType("unknown"), 0, 5, nil)
	assert.Equal(t, "minimal_fix", c.Name)
}

func TestCheckMonotonicity_DetectsViolationOnPreservedStageRegression(t *testing.T) {
	c, _ := ConstraintFor("minimal_fix")
	result := CheckMonotonicity(c, []string{"lint", "security"}, []string{"lint"}, nil, "")
	assert.True(t, result.Violated)
	assert.Equal(t, "lint", result.OffendingStage)
}

func TestCheckMonotonicity_IntendedRegressionWithJustificationExcuses(t *testing.T) {
	c, _ := ConstraintFor("minimal_fix")
	result := CheckMonotonicity(c, []string{"lint"}, []string{"lint"}, []string{"lint"}, "necessary tradeoff for the fix")
	assert.False(t, result.Violated)
}

func TestCheckMonotonicity_NoViolationWhenStageNeverPassed(t *testing.T) {
	c, _ := ConstraintFor("minimal_fix")
	result := CheckMonotonicity(c, []string{}, []string{"lint"}, nil, "")
	assert.False(t, result.Violated)
}

func TestConstraintFor_ReturnsExpectedBounds(t *testing.T) {
	c, ok := ConstraintFor("security_fix")
	assert.True(t, ok)
	assert.Equal(t, 1, c.MaxFilesTouched)
	assert.Equal(t, 25, c.MaxLOCDelta)
	assert.Contains(t, c.Forbidden, "refactor")
	assert.Equal(t, "hard", c.Anchor)
}

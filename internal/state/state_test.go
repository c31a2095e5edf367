package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfidence_RangeValidation(t *testing.T) {
	_, err := NewConfidence(1.5)
	require.Error(t, err)

	c, err := NewConfidence(0.5)
	require.NoError(t, err)
	assert.Equal(t, Confidence(0.5), c)
}

func TestMerge_AppendOnlyFieldsConcatenate(t *testing.T) {
	s := New("run-1", "user-1", "do the thing", 3)

	s.Merge(StageDelta{
		NewStagesPassed:   []string{"lint"},
		NewFailureIDsSeen: []string{"runtime:1:NameError"},
		NewNodeTraces:     []NodeTrace{{NodeName: "worker"}},
	})
	s.Merge(StageDelta{
		NewStagesPassed:   []string{"security"},
		NewFailureIDsSeen: []string{"runtime:1:NameError"}, // duplicate, should not double-add
		NewNodeTraces:     []NodeTrace{{NodeName: "sandbox"}},
	})

	assert.Equal(t, []string{"lint", "security"}, s.StagesPassed)
	assert.Equal(t, []string{"runtime:1:NameError"}, s.FailureIDsSeen)
	assert.Len(t, s.NodeTraces, 2)
}

func TestMerge_ScalarFieldsTakeLatestNonNil(t *testing.T) {
	s := New("run-1", "user-1", "task", 3)

	small := TaskSizeSmall
	s.Merge(StageDelta{TaskSize: &small})
	assert.Equal(t, TaskSizeSmall, s.TaskSize)

	complex := TaskSizeComplex
	s.Merge(StageDelta{TaskSize: &complex})
	assert.Equal(t, TaskSizeComplex, s.TaskSize)

	// Merging with a nil pointer must not reset the field.
	s.Merge(StageDelta{})
	assert.Equal(t, TaskSizeComplex, s.TaskSize)
}

func TestMerge_IterationIncrementOnlyAdvancesExplicitly(t *testing.T) {
	s := New("run-1", "user-1", "task", 3)
	require.Equal(t, 0, s.IterationCount)

	s.Merge(StageDelta{}) // integrity-gate rejection style delta: no increment
	assert.Equal(t, 0, s.IterationCount)

	s.Merge(StageDelta{IterationIncrement: 1})
	assert.Equal(t, 1, s.IterationCount)
}

func TestHasStagePassed_HasSeenFailure_HasTriedStrategy(t *testing.T) {
	s := New("run-1", "user-1", "task", 3)
	s.StagesPassed = []string{"lint"}
	s.FailureIDsSeen = []string{"lint:1:E501"}
	s.RevisionStrategiesTried = []string{"minimal_fix"}

	assert.True(t, s.HasStagePassed("lint"))
	assert.False(t, s.HasStagePassed("security"))
	assert.True(t, s.HasSeenFailure("lint:1:E501"))
	assert.True(t, s.HasTriedStrategy("minimal_fix"))
	assert.False(t, s.HasTriedStrategy("refactor"))
}

package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supernovae/synesis/internal/state"
)

func TestCriticStage_Approves(t *testing.T) {
	llm := &fakeLLM{Content: `{"approved":true,"feedback":"looks good","reasoning":"clean exit, tests pass"}`}
	c := NewCriticStage(llm, "test-model")
	s := state.New("run-1", "user-1", "add a log line", 3)
	exitCode := 0
	s.ExecutionExitCode = &exitCode

	delta, err := c.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.CriticApproved)
	assert.True(t, *delta.CriticApproved)
}

func TestCriticStage_RejectsWithBlockingIssues(t *testing.T) {
	llm := &fakeLLM{Content: `{"approved":false,"feedback":"missing error handling","blocking_issues":["unchecked error return"],"reasoning":"risk of silent failure"}`}
	c := NewCriticStage(llm, "test-model")
	s := state.New("run-1", "user-1", "add a log line", 3)
	exitCode := 0
	s.ExecutionExitCode = &exitCode

	delta, err := c.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.CriticApproved)
	assert.False(t, *delta.CriticApproved)
	assert.Equal(t, []string{"unchecked error return"}, delta.BlockingIssues)
}

func TestCriticStage_PostmortemForcesApprovalAtCeiling(t *testing.T) {
	llm := &fakeLLM{Content: `{"approved":false,"feedback":"still broken","reasoning":"exhausted ideas"}`}
	c := NewCriticStage(llm, "test-model")
	s := state.New("run-1", "user-1", "fix the flaky test", 3)
	s.IterationCount = 3
	s.MaxIterations = 3

	delta, err := c.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.CriticApproved)
	assert.True(t, *delta.CriticApproved, "the iteration ceiling must force approval to terminate the loop")
	require.NotNil(t, delta.CriticFeedback)
	assert.Contains(t, *delta.CriticFeedback, "Iteration ceiling reached")
}

func TestCriticStage_LLMErrorTerminatesInBand(t *testing.T) {
	llm := &fakeLLM{Err: assert.AnError}
	c := NewCriticStage(llm, "test-model")
	s := state.New("run-1", "user-1", "add a log line", 3)

	delta, err := c.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.NextNode)
	require.NotNil(t, delta.Error)
}

func TestExitCodeOf(t *testing.T) {
	s := &state.State{}
	assert.Equal(t, "n/a", exitCodeOf(s))
	code := 2
	s.ExecutionExitCode = &code
	assert.Equal(t, "2", exitCodeOf(s))
}

func TestTruncateFor(t *testing.T) {
	assert.Equal(t, "short", truncateFor("short", 10))
	assert.Equal(t, "01234", truncateFor("0123456789", 5))
}

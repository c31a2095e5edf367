package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

func TestPlannerStage_NeedsApprovalTerminatesToRespond(t *testing.T) {
	llm := &fakeLLM{Content: `{"steps":["add migration","update model","run tests"],"touched_files":["schema.sql","model.go"],"needs_approval":true,"reasoning":"multi-file change"}`}
	p := NewPlannerStage(llm, "test-model")
	s := state.New("run-1", "user-1", "migrate the users table", 3)

	delta, err := p.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.NextNode)
	assert.Equal(t, routing.StageRespond, *delta.NextNode)
	require.NotNil(t, delta.NeedsClarification)
	assert.True(t, *delta.NeedsClarification)
	require.NotNil(t, delta.ClarificationSource)
	assert.Equal(t, routing.StagePlanner, *delta.ClarificationSource)
	require.NotNil(t, delta.CriticFeedback)
	assert.Contains(t, *delta.CriticFeedback, "add migration")
	assert.Equal(t, []string{"schema.sql", "model.go"}, delta.TouchedFilesManifest)
}

func TestPlannerStage_NoApprovalProceeds(t *testing.T) {
	llm := &fakeLLM{Content: `{"steps":["rename the function"],"touched_files":["util.go"],"needs_approval":false,"reasoning":"trivial rename"}`}
	p := NewPlannerStage(llm, "test-model")
	s := state.New("run-1", "user-1", "rename helper to format", 3)

	delta, err := p.Run(t.Context(), s)
	require.NoError(t, err)
	assert.Nil(t, delta.NextNode)
	assert.Nil(t, delta.NeedsClarification)
	assert.Equal(t, []string{"util.go"}, delta.TouchedFilesManifest)
}

func TestPlannerStage_LLMErrorTerminatesInBand(t *testing.T) {
	llm := &fakeLLM{Err: assert.AnError}
	p := NewPlannerStage(llm, "test-model")
	s := state.New("run-1", "user-1", "migrate the users table", 3)

	delta, err := p.Run(t.Context(), s)
	require.NoError(t, err)
	require.NotNil(t, delta.NextNode)
	assert.Equal(t, routing.StageRespond, *delta.NextNode)
	require.NotNil(t, delta.Error)
}

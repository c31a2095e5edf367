package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supernovae/synesis/internal/state"
)

func stageDone(name string, next string) Stage {
	return StageFunc{
		StageName: name,
		TimeoutD:  time.Second,
		RunFn: func(ctx context.Context, s *state.State) (state.StageDelta, error) {
			n := next
			return state.StageDelta{NextNode: &n}, nil
		},
	}
}

func TestRunTraversal_WalksToRespond(t *testing.T) {
	respond := StageFunc{
		StageName: StageRespond,
		RunFn: func(ctx context.Context, s *state.State) (state.StageDelta, error) {
			return state.StageDelta{}, nil
		},
	}
	g := NewGraph(
		map[string]Stage{
			StageClassifier: stageDone(StageClassifier, ""),
			StageSupervisor: stageDone(StageSupervisor, ""),
			StageRespond:    respond,
		},
		map[string]RouteFunc{
			StageClassifier: func(s *state.State) string { return StageSupervisor },
			StageSupervisor: func(s *state.State) string { return StageRespond },
		},
	)

	s := state.New("r1", "u1", "hi", 5)
	out, err := g.RunTraversal(context.Background(), s, "")
	require.NoError(t, err)
	assert.Equal(t, StageRespond, out.CurrentNode)
}

func TestRunTraversal_ResumesAtGivenStage(t *testing.T) {
	respond := StageFunc{StageName: StageRespond, RunFn: func(ctx context.Context, s *state.State) (state.StageDelta, error) {
		return state.StageDelta{}, nil
	}}
	g := NewGraph(
		map[string]Stage{
			StageWorker:  stageDone(StageWorker, ""),
			StageRespond: respond,
		},
		map[string]RouteFunc{
			StageWorker: func(s *state.State) string { return StageRespond },
		},
	)
	s := state.New("r1", "u1", "hi", 5)
	out, err := g.RunTraversal(context.Background(), s, StageWorker)
	require.NoError(t, err)
	assert.Equal(t, StageRespond, out.CurrentNode)
}

func TestRunWithTimeout_SlowStageProducesTimeoutTrace(t *testing.T) {
	slow := StageFunc{
		StageName: "worker",
		TimeoutD:  10 * time.Millisecond,
		RunFn: func(ctx context.Context, s *state.State) (state.StageDelta, error) {
			<-ctx.Done()
			time.Sleep(5 * time.Millisecond)
			return state.StageDelta{}, nil
		},
	}
	delta, err := runWithTimeout(context.Background(), slow, state.New("r1", "u1", "x", 5))
	require.NoError(t, err)
	require.Len(t, delta.NewNodeTraces, 1)
	assert.Equal(t, state.NodeOutcomeTimeout, delta.NewNodeTraces[0].Outcome)
	require.NotNil(t, delta.NextNode)
	assert.Equal(t, StageRespond, *delta.NextNode)
}

package stages

import (
	"context"
	"time"

	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// RespondStage is the graph's terminal node: it records the closing
// audit entry and does not touch any response-carrying field — the
// response text itself is already sitting in whichever of
// Error/UnifiedDiff/GeneratedCode/CriticFeedback the last stage to run
// set, which internal/httpapi's responseText picks from.
type RespondStage struct{}

func NewRespondStage() *RespondStage { return &RespondStage{} }

func (r *RespondStage) Name() string           { return routing.StageRespond }
func (r *RespondStage) Timeout() time.Duration { return 0 }

func (r *RespondStage) Run(_ context.Context, s *state.State) (state.StageDelta, error) {
	outcome := state.NodeOutcomeSuccess
	if s.Error != "" && !s.NeedsClarification {
		outcome = state.NodeOutcomeError
	}
	return state.StageDelta{
		NewNodeTraces: []state.NodeTrace{{
			NodeName:  routing.StageRespond,
			Reasoning: "traversal complete after " + itoa(len(s.StagesPassed)) + " stages",
			Outcome:   outcome,
			Timestamp: time.Now(),
		}},
	}, nil
}

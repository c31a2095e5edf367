package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

const plannerSystemPrompt = `You are the planner stage of a coding assistant pipeline, invoked for
a complex, multi-step task that the supervisor scoped for planning.
Respond with a single JSON object, no commentary:
{"steps":["..."],"touched_files":["..."],"needs_approval":true,"reasoning":"..."}
needs_approval is true when the plan should be shown to the user for
acknowledgment before any code is written; false when it is
straightforward enough to proceed directly.`

type plannerDecision struct {
	Steps         []string `json:"steps"`
	TouchedFiles  []string `json:"touched_files"`
	NeedsApproval bool     `json:"needs_approval"`
	Reasoning     string   `json:"reasoning"`
}

// PlannerStage drafts a multi-step plan and its touched-files scope
// (spec §4.1 planner node), terminating to respond when the plan
// requires the user's explicit acknowledgment before proceeding.
type PlannerStage struct {
	LLM   llmclient.Client
	Model string
}

func NewPlannerStage(llm llmclient.Client, model string) *PlannerStage {
	return &PlannerStage{LLM: llm, Model: model}
}

func (p *PlannerStage) Name() string           { return routing.StagePlanner }
func (p *PlannerStage) Timeout() time.Duration { return 25 * time.Second }

func (p *PlannerStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	var decision plannerDecision
	resp, latency, err := callStructured(ctx, p.LLM, p.Model, plannerSystemPrompt,
		fmt.Sprintf("Task: %s\nTarget language: %s\nScope hint: %s",
			s.TaskDescription, s.TargetLanguage, strings.Join(s.TouchedFilesManifest, ", ")), &decision)
	if err != nil {
		respond := routing.StageRespond
		errMsg := "planner could not produce a plan: " + err.Error()
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StagePlanner, err.Error(), latency)},
		}, nil
	}

	trace := state.NodeTrace{
		NodeName:  routing.StagePlanner,
		Reasoning: decision.Reasoning,
		Outcome:   state.NodeOutcomeSuccess,
		LatencyMS: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
	if resp != nil {
		trace.TokensUsed = resp.Usage.TotalTokens
	}

	delta := state.StageDelta{
		TouchedFilesManifest: decision.TouchedFiles,
		NewNodeTraces:        []state.NodeTrace{trace},
	}
	if decision.NeedsApproval {
		respond := routing.StageRespond
		needsClarification := true
		source := routing.StagePlanner
		plan := "Proposed plan:\n- " + strings.Join(decision.Steps, "\n- ")
		delta.NextNode = &respond
		delta.CriticFeedback = &plan
		delta.NeedsClarification = &needsClarification
		delta.ClarificationSource = &source
	}
	return delta, nil
}

package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

const supervisorSystemPrompt = `You are the supervisor stage of a coding assistant pipeline.
Decide whether the request can proceed straight to the worker, needs a
plan drafted first, or is too ambiguous to act on without asking the
user one clarifying question.
Respond with a single JSON object, no commentary:
{"decision":"clarify|plan|forward","question":"...","touched_files":["..."],"reasoning":"..."}
decision=clarify requires "question" to be set and nothing else matters.
decision=plan routes to a planning stage for a multi-step scope.
decision=forward sends the request straight to the worker for a single-step change.`

type supervisorDecision struct {
	Decision     string   `json:"decision"`
	Question     string   `json:"question"`
	TouchedFiles []string `json:"touched_files"`
	Reasoning    string   `json:"reasoning"`
}

// SupervisorStage scopes the request: clarify, delegate to the
// planner, or forward straight to the worker (spec §4.1 supervisor
// node). In SupervisorGuard mode (re-entry after a critic rejection)
// it may only clarify or forward — never downgrade back to planning —
// enforced by routing.RouteAfterSupervisor, not by this stage.
type SupervisorStage struct {
	LLM   llmclient.Client
	Model string
}

func NewSupervisorStage(llm llmclient.Client, model string) *SupervisorStage {
	return &SupervisorStage{LLM: llm, Model: model}
}

func (sv *SupervisorStage) Name() string           { return routing.StageSupervisor }
func (sv *SupervisorStage) Timeout() time.Duration { return 20 * time.Second }

func (sv *SupervisorStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	var decision supervisorDecision
	resp, latency, err := callStructured(ctx, sv.LLM, sv.Model, supervisorSystemPrompt,
		fmt.Sprintf("Task: %s\nTarget language: %s\nSupervisor guard active: %v",
			s.TaskDescription, s.TargetLanguage, s.SupervisorGuard), &decision)
	if err != nil {
		respond := routing.StageRespond
		errMsg := "supervisor could not reach a scoping decision: " + err.Error()
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StageSupervisor, err.Error(), latency)},
		}, nil
	}

	trace := state.NodeTrace{
		NodeName:  routing.StageSupervisor,
		Reasoning: decision.Reasoning,
		Outcome:   state.NodeOutcomeSuccess,
		LatencyMS: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
	if resp != nil {
		trace.TokensUsed = resp.Usage.TotalTokens
	}

	if decision.Decision == "clarify" && decision.Question != "" {
		respond := routing.StageRespond
		needsClarification := true
		source := routing.StageSupervisor
		question := decision.Question
		return state.StageDelta{
			NextNode:            &respond,
			Error:                &question,
			NeedsClarification:  &needsClarification,
			ClarificationSource: &source,
			NewNodeTraces:       []state.NodeTrace{trace},
		}, nil
	}

	next := routing.StageWorker
	if decision.Decision == "plan" {
		next = routing.StagePlanner
	}
	return state.StageDelta{
		NextNode:             &next,
		TouchedFilesManifest: decision.TouchedFiles,
		NewNodeTraces:        []state.NodeTrace{trace},
	}, nil
}

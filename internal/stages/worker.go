package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/failurecache"
	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

const workerSystemPrompt = `You are the worker stage of a coding assistant pipeline. Generate or
revise code for the task below using the supplied context pack.
Respond with a single JSON object, no commentary:
{"code":"...","files_touched":["..."],"unified_diff":"","stop_reason":"","question":"","reasoning":"..."}
stop_reason, when set, must be one of: blocked_external, cannot_reproduce,
unsafe_request, needs_scope_expansion. Leave it empty on a normal
attempt. Set "question" (and leave code empty) only when you must ask
the user something before you can proceed at all.`

type workerDecision struct {
	Code         string   `json:"code"`
	FilesTouched []string `json:"files_touched"`
	UnifiedDiff  string   `json:"unified_diff"`
	StopReason   string   `json:"stop_reason"`
	Question     string   `json:"question"`
	Reasoning    string   `json:"reasoning"`
}

// WorkerStage generates or revises code for the task (spec §4.1 worker
// node), consulting the fail-fast cache for known-bad approaches
// before prompting so a revision attempt doesn't repeat a mistake
// already made this traversal or a recent one.
type WorkerStage struct {
	LLM       llmclient.Client
	Model     string
	FailCache *failurecache.FailFastCache
}

func NewWorkerStage(llm llmclient.Client, model string, failCache *failurecache.FailFastCache) *WorkerStage {
	return &WorkerStage{LLM: llm, Model: model, FailCache: failCache}
}

func (w *WorkerStage) Name() string           { return routing.StageWorker }
func (w *WorkerStage) Timeout() time.Duration { return 60 * time.Second }

func (w *WorkerStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	var hints []string
	if w.FailCache != nil {
		hints = w.FailCache.Hints(s.TaskDescription, s.TargetLanguage)
	}

	user := fmt.Sprintf("Task: %s\nTarget language: %s\nIteration: %d/%d\nPrior failure feedback: %s\nKnown-bad approaches: %s\nContext pack hash: %s",
		s.TaskDescription, s.TargetLanguage, s.IterationCount, s.MaxIterations,
		s.CriticFeedback, strings.Join(hints, "; "), contextHashOf(s))

	var decision workerDecision
	resp, latency, err := callStructured(ctx, w.LLM, w.Model, workerSystemPrompt, user, &decision)
	if err != nil {
		respond := routing.StageRespond
		errMsg := "worker could not produce a result: " + err.Error()
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StageWorker, err.Error(), latency)},
		}, nil
	}

	trace := state.NodeTrace{
		NodeName:  routing.StageWorker,
		Reasoning: decision.Reasoning,
		Outcome:   state.NodeOutcomeSuccess,
		LatencyMS: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
	if resp != nil {
		trace.TokensUsed = resp.Usage.TotalTokens
	}

	if decision.Question != "" && decision.Code == "" {
		respond := routing.StageRespond
		needsClarification := true
		source := routing.StageWorker
		question := decision.Question
		return state.StageDelta{
			NextNode:            &respond,
			Error:                &question,
			NeedsClarification:  &needsClarification,
			ClarificationSource: &source,
			NewNodeTraces:       []state.NodeTrace{trace},
		}, nil
	}

	delta := state.StageDelta{
		GeneratedCode: &decision.Code,
		FilesTouched:  decision.FilesTouched,
		NewNodeTraces: []state.NodeTrace{trace},
	}
	if decision.UnifiedDiff != "" {
		delta.UnifiedDiff = &decision.UnifiedDiff
	}
	if sr := state.StopReason(decision.StopReason); sr != state.StopReasonNone {
		delta.StopReason = &sr
	}
	return delta, nil
}

func contextHashOf(s *state.State) string {
	if s.ContextPack == nil {
		return ""
	}
	return s.ContextPack.ContextHash
}

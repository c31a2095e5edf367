package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

const criticSystemPrompt = `You are the critic stage of a coding assistant pipeline, reviewing a
sandbox-executed result (clean exit, or a postmortem at the iteration
ceiling). Surface Safety-II what-if scenarios rather than a bare
pass/fail; approve only when the result is genuinely ready to ship.
Respond with a single JSON object, no commentary:
{"approved":true,"feedback":"...","residual_risks":["..."],"blocking_issues":["..."],"reasoning":"..."}`

type criticDecision struct {
	Approved       bool     `json:"approved"`
	Feedback       string   `json:"feedback"`
	ResidualRisks  []string `json:"residual_risks"`
	BlockingIssues []string `json:"blocking_issues"`
	Reasoning      string   `json:"reasoning"`
}

// CriticStage reviews the worker's result after sandbox execution
// (spec §4.1 critic node). Rejection sets SupervisorGuard and routes
// back to the supervisor for another pass, unless the iteration ceiling is already
// reached — that postmortem framing is routing.RouteAfterCritic's
// concern, not this stage's.
type CriticStage struct {
	LLM   llmclient.Client
	Model string
}

func NewCriticStage(llm llmclient.Client, model string) *CriticStage {
	return &CriticStage{LLM: llm, Model: model}
}

func (c *CriticStage) Name() string           { return routing.StageCritic }
func (c *CriticStage) Timeout() time.Duration { return 20 * time.Second }

func (c *CriticStage) Run(ctx context.Context, s *state.State) (state.StageDelta, error) {
	postmortem := s.IterationCount >= s.MaxIterations
	user := fmt.Sprintf("Task: %s\nExit code: %v\nExecution output: %s\nPostmortem (ceiling reached): %v",
		s.TaskDescription, exitCodeOf(s), truncateFor(s.ExecutionResult, 2000), postmortem)

	var decision criticDecision
	resp, latency, err := callStructured(ctx, c.LLM, c.Model, criticSystemPrompt, user, &decision)
	if err != nil {
		respond := routing.StageRespond
		errMsg := "critic could not evaluate the result: " + err.Error()
		return state.StageDelta{
			NextNode:      &respond,
			Error:         &errMsg,
			NewNodeTraces: []state.NodeTrace{errorTrace(routing.StageCritic, err.Error(), latency)},
		}, nil
	}

	approved := decision.Approved || postmortem
	trace := state.NodeTrace{
		NodeName:  routing.StageCritic,
		Reasoning: decision.Reasoning,
		Outcome:   outcomeFor(approved),
		LatencyMS: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
	if resp != nil {
		trace.TokensUsed = resp.Usage.TotalTokens
	}

	feedback := decision.Feedback
	if postmortem && !decision.Approved {
		feedback = "Iteration ceiling reached; surfacing postmortem as-is. " + feedback
	}

	delta := state.StageDelta{
		CriticApproved: &approved,
		CriticFeedback: &feedback,
		ResidualRisks:  decision.ResidualRisks,
		BlockingIssues: decision.BlockingIssues,
		NewNodeTraces:  []state.NodeTrace{trace},
	}
	if !approved {
		guard := true
		delta.SupervisorGuard = &guard
	}
	return delta, nil
}

func exitCodeOf(s *state.State) string {
	if s.ExecutionExitCode == nil {
		return "n/a"
	}
	return itoa(*s.ExecutionExitCode)
}

func truncateFor(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

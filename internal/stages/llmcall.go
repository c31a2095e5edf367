package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/llmclient"
	"github.com/supernovae/synesis/internal/state"
)

// callStructured issues one chat-completion call instructing the model
// to answer with a single JSON object, and decodes out (a pointer to a
// stage-local result struct). It mirrors the teacher's SingleShotController
// shape — one LLM call, timed, producing a single structured outcome —
// generalized from free-text "final analysis" to a typed decision every
// LLM-driven stage needs (spec §4's per-stage JSON contracts).
func callStructured(ctx context.Context, llm llmclient.Client, model string, system, user string, out any) (*llmclient.Response, time.Duration, error) {
	start := time.Now()
	resp, err := llm.Complete(ctx, llmclient.Request{
		Model: model,
		Messages: []state.Message{
			{Role: state.RoleSystem, Content: system},
			{Role: state.RoleUser, Content: user},
		},
		Temperature: 0.2,
	})
	latency := time.Since(start)
	if err != nil {
		return nil, latency, fmt.Errorf("stages: llm call failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), out); err != nil {
		return resp, latency, fmt.Errorf("stages: decode llm response: %w", err)
	}
	return resp, latency, nil
}

// extractJSON trims a model response down to its outermost JSON object,
// tolerating the markdown code-fence wrapping models commonly add
// despite being told to answer with raw JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// errorTrace builds the NodeTrace for a stage that failed to produce a
// usable result, keeping the traversal's audit trail complete even on
// an LLM or transport failure.
func errorTrace(node, reasoning string, latency time.Duration) state.NodeTrace {
	return state.NodeTrace{
		NodeName:  node,
		Reasoning: reasoning,
		Outcome:   state.NodeOutcomeError,
		LatencyMS: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
}

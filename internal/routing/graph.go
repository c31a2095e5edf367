package routing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/supernovae/synesis/internal/state"
)

// Graph is a value built once at process start: every stage keyed by
// name, and the route function that decides what follows it. route
// functions are keyed by the stage whose completion they interpret
// (e.g. "classifier" decides what follows the classifier stage).
type Graph struct {
	Stages map[string]Stage
	Routes map[string]RouteFunc
	Entry  string
}

// NewGraph builds a Graph from the given stages and routes, defaulting
// Entry to the classifier stage.
func NewGraph(stages map[string]Stage, routes map[string]RouteFunc) *Graph {
	return &Graph{Stages: stages, Routes: routes, Entry: StageClassifier}
}

// RunTraversal walks the graph from resumeStage (or g.Entry when
// resumeStage is empty) to respond, applying each stage's StageDelta
// and wrapping the call in a per-stage deadline. A stage that exceeds
// its timeout contributes a Timeout NodeTrace and forces the next
// stage to respond, mirroring the original's with_timeout decorator.
//
// resumeStage is supplied by the caller (spec §4.6 "Entry"): when a
// pending question exists for this user and names worker, planner, or
// supervisor as its source, the caller resolves that to resumeStage so
// the traversal rehydrates at the right point instead of re-entering
// the classifier.
// onStage, when supplied, is invoked with the name of each stage after
// it completes and its delta has been merged — the HTTP surface uses
// this to emit "event: status" progress frames without the routing
// package knowing anything about SSE.
func (g *Graph) RunTraversal(ctx context.Context, s *state.State, resumeStage string, onStage ...func(stageName string)) (*state.State, error) {
	current := resumeStage
	if current == "" {
		current = g.Entry
	}

	notify := func(name string) {
		for _, fn := range onStage {
			fn(name)
		}
	}

	for current != StageRespond && current != "" {
		stage, ok := g.Stages[current]
		if !ok {
			return s, fmt.Errorf("routing: no stage registered for %q", current)
		}

		stampSpan(ctx, s, current)
		delta, err := runWithTimeout(ctx, stage, s)
		if err != nil {
			s.Merge(delta)
			s.CurrentNode = current
			s.Error = err.Error()
			notify(current)
			break
		}
		s.Merge(delta)
		s.CurrentNode = current
		notify(current)

		if s.Error != "" {
			break
		}

		route, ok := g.Routes[current]
		if !ok {
			return s, fmt.Errorf("routing: no route function registered for %q", current)
		}
		current = route(s)
	}

	if respondStage, ok := g.Stages[StageRespond]; ok {
		delta, _ := respondStage.Run(ctx, s)
		s.Merge(delta)
		s.CurrentNode = StageRespond
		notify(StageRespond)
	}
	return s, nil
}

// stampSpan attaches the inbound X-Synesis-Request-ID and the stage
// about to run to the current span (spec §12 correlation), so a trace
// backend wired up via the process's configured TracerProvider can
// follow one HTTP request across every stage call. With no provider
// configured this is a documented no-op against otel's default tracer.
func stampSpan(ctx context.Context, s *state.State, stageName string) {
	if s.RequestID == "" {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("synesis.request_id", s.RequestID),
		attribute.String("synesis.stage", stageName),
	)
}

// runWithTimeout wraps a single stage invocation with its configured
// deadline. On deadline exceeded it synthesizes a Timeout NodeTrace and
// a delta that forces the traversal to respond, matching the
// original's with_timeout Erlang-style node kill.
func runWithTimeout(ctx context.Context, stage Stage, s *state.State) (state.StageDelta, error) {
	timeout := stage.Timeout()
	if timeout <= 0 {
		return stage.Run(ctx, s)
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		delta state.StageDelta
		err   error
	}
	done := make(chan result, 1)
	go func() {
		d, e := stage.Run(stageCtx, s)
		done <- result{d, e}
	}()

	select {
	case r := <-done:
		return r.delta, r.err
	case <-stageCtx.Done():
		respond := StageRespond
		errMsg := fmt.Sprintf("Node %q timed out after %s", stage.Name(), timeout)
		return state.StageDelta{
			NextNode: &respond,
			Error:    &errMsg,
			NewNodeTraces: []state.NodeTrace{{
				NodeName:  stage.Name(),
				Reasoning: fmt.Sprintf("Timeout after %s", timeout),
				Outcome:   state.NodeOutcomeTimeout,
				LatencyMS: float64(timeout.Milliseconds()),
				Timestamp: time.Now(),
			}},
		}, nil
	}
}

// ResumeStageFor maps a pending question's source node to the routing
// stage a traversal should resume at, per spec §4.6 "Entry". Returns
// "" (meaning: start at the classifier) for any source outside
// {worker, planner, supervisor}.
func ResumeStageFor(pendingQuestionSource string) string {
	switch pendingQuestionSource {
	case StageWorker, StagePlanner, StageSupervisor:
		return pendingQuestionSource
	default:
		return ""
	}
}

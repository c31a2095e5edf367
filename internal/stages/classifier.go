package stages

import (
	"context"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/classifier"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// ClassifierStage is the traversal's entry node: it scores the task,
// rejects UI-helper requests outright, and seeds a synthesized plan
// for trivial tasks so they skip the supervisor and planner entirely
// (spec §4.1).
type ClassifierStage struct {
	Engine *classifier.Engine
}

// NewClassifierStage wraps a compiled classifier.Engine as a Stage.
func NewClassifierStage(engine *classifier.Engine) *ClassifierStage {
	return &ClassifierStage{Engine: engine}
}

func (c *ClassifierStage) Name() string           { return routing.StageClassifier }
func (c *ClassifierStage) Timeout() time.Duration { return 5 * time.Second }

func (c *ClassifierStage) Run(_ context.Context, s *state.State) (state.StageDelta, error) {
	start := time.Now()
	cl := c.Engine.Classify(s.TaskDescription)

	if cl.IsUIHelper {
		respond := routing.StageRespond
		errMsg := "This request is a UI-helper prompt (follow-up suggestion or title generation), not a coding task."
		return state.StageDelta{
			NextNode: &respond,
			Error:    &errMsg,
			NewNodeTraces: []state.NodeTrace{{
				NodeName:  routing.StageClassifier,
				Reasoning: "rejected: ui_helper pattern matched",
				Outcome:   state.NodeOutcomeSuccess,
				LatencyMS: float64(time.Since(start).Milliseconds()),
				Timestamp: time.Now(),
			}},
		}, nil
	}

	taskType := classifyTaskType(s.TaskDescription)
	bypassSupervisor := cl.TaskSize == state.TaskSizeTrivial && !cl.ManualOverride

	delta := state.StageDelta{
		TaskSize:         &cl.TaskSize,
		TaskType:         &taskType,
		InteractionMode:  &cl.InteractionMode,
		TargetLanguage:   &cl.TargetLanguage,
		BypassSupervisor: &bypassSupervisor,
		NewNodeTraces: []state.NodeTrace{{
			NodeName:    routing.StageClassifier,
			Reasoning:   "score=" + itoa(cl.Score) + " hits=" + strings.Join(cl.ClassificationHits, ","),
			Assumptions: cl.CategoriesTouched,
			Outcome:     state.NodeOutcomeSuccess,
			LatencyMS:   float64(time.Since(start).Milliseconds()),
			Timestamp:   time.Now(),
		}},
	}

	if bypassSupervisor {
		cl.SeedTrivialPlan(s.TaskDescription)
		delta.TouchedFilesManifest = cl.SeededTouchedFiles
	}

	return delta, nil
}

// classifyTaskType is a lightweight keyword heuristic distinguishing
// prompt-template selection categories; it never affects routing (spec
// §4.1: "TaskType ... used only for prompt-template selection").
func classifyTaskType(text string) state.TaskType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "review") || strings.Contains(lower, "audit"):
		return state.TaskTypeCodeReview
	case strings.Contains(lower, "explain") || strings.Contains(lower, "why") || strings.Contains(lower, "how does"):
		return state.TaskTypeExplanation
	case strings.Contains(lower, "fix") || strings.Contains(lower, "bug") || strings.Contains(lower, "debug") || strings.Contains(lower, "error"):
		return state.TaskTypeDebugging
	case strings.Contains(lower, "bash") || strings.Contains(lower, "shell") || strings.Contains(lower, "script"):
		return state.TaskTypeShellScript
	case strings.Contains(lower, "write") || strings.Contains(lower, "implement") || strings.Contains(lower, "create") || strings.Contains(lower, "build"):
		return state.TaskTypeCodeGeneration
	default:
		return state.TaskTypeGeneral
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Package logging centralizes the structured key-value fields every
// stage and collaborator client attaches to log/slog, generalizing the
// ad-hoc slog.With(...) calls scattered through the teacher's
// pkg/agent/controller and pkg/services packages into one helper so
// every node boundary logs the same field names.
package logging

import "log/slog"

// ForRun returns a logger scoped to one traversal, carrying run_id and
// user_id on every record it emits.
func ForRun(runID, userID string) *slog.Logger {
	return slog.With("run_id", runID, "user_id", userID)
}

// ForStage extends a run-scoped logger with the current stage name,
// matching the node_name/run_id/iteration/outcome/latency_ms field set
// every stage logs at entry and exit.
func ForStage(base *slog.Logger, stageName string, iteration int) *slog.Logger {
	return base.With("node_name", stageName, "iteration", iteration)
}

// StageOutcome logs a single stage's exit, the one log line every
// Stage.Run implementation emits on return.
func StageOutcome(log *slog.Logger, outcome string, latencyMS float64, err error) {
	if err != nil {
		log.Error("stage failed", "outcome", outcome, "latency_ms", latencyMS, "error", err)
		return
	}
	log.Info("stage completed", "outcome", outcome, "latency_ms", latencyMS)
}

package convmemory

import (
	"context"
	"fmt"
)

// StubSummarizer is the always-available fallback used when no small
// model collaborator is configured, matching _stub_pivot_summary's
// turn-count note.
type StubSummarizer struct{}

// SummarizePivot returns a one-line note naming how many turns were
// completed in the prior language.
func (StubSummarizer) SummarizePivot(ctx context.Context, history []Turn, lastLanguage, currentLanguage string) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	return fmt.Sprintf("Completed %d turn(s) in %s.", len(history), lastLanguage), nil
}

// DetectPivot reports whether newLanguage differs from the user's
// last recorded language (a pivot), and — when it does — the archival
// note to prepend to the flushed history, produced by summarizer (or
// StubSummarizer when summarizer is nil or errors).
//
// Pivot detection itself never blocks the caller on a failing
// summarizer: any error falls back to the stub note rather than
// surfacing, since losing the one-line pivot note is preferable to
// stalling a turn over the summarizer collaborator being unavailable.
func DetectPivot(ctx context.Context, h *UserHistory, newLanguage string, summarizer Summarizer) (pivoted bool, note string) {
	if h == nil || h.LastLanguage == "" || newLanguage == "" || h.LastLanguage == newLanguage {
		return false, ""
	}

	if summarizer != nil {
		if s, err := summarizer.SummarizePivot(ctx, h.Turns, h.LastLanguage, newLanguage); err == nil && s != "" {
			return true, s
		}
	}
	s, _ := StubSummarizer{}.SummarizePivot(ctx, h.Turns, h.LastLanguage, newLanguage)
	return true, s
}

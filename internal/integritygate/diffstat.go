package integritygate

import (
	"strings"

	"github.com/supernovae/synesis/internal/state"
)

// locDeltaFromDiff counts added/removed lines in a unified diff,
// ignoring the +++ / --- header lines.
func locDeltaFromDiff(unifiedDiff string) int {
	if unifiedDiff == "" {
		return 0
	}
	delta := 0
	for _, line := range strings.Split(unifiedDiff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			delta++
		case strings.HasPrefix(line, "-"):
			delta--
		}
	}
	if delta < 0 {
		return -delta
	}
	return delta
}

// locDeltaFromPatchOps estimates LOC delta from patch ops when no
// unified diff is available (e.g. a patch_ops-only turn).
func locDeltaFromPatchOps(ops []state.PatchOp) int {
	total := 0
	for _, op := range ops {
		if op.Text == "" {
			continue
		}
		total += len(strings.Split(op.Text, "\n"))
	}
	return total
}

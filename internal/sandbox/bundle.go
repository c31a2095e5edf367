package sandbox

import (
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/supernovae/synesis/internal/state"
)

// languageExtensions maps a target_language value to the script
// extension the warm pool / job runner expects, ported from the
// original's LANGUAGE_EXTENSIONS table.
var languageExtensions = map[string]string{
	"bash":       "sh",
	"shell":      "sh",
	"sh":         "sh",
	"python":     "py",
	"javascript": "js",
	"js":         "js",
	"typescript": "ts",
	"ts":         "ts",
	"c":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"java":       "java",
	"go":         "go",
}

// Extension returns the script filename extension for a language,
// defaulting to "txt" for anything unrecognized.
func Extension(language string) string {
	if ext, ok := languageExtensions[strings.ToLower(language)]; ok {
		return ext
	}
	return "txt"
}

// HasPatchContent reports whether any op carries non-empty text, the
// same emptiness check the original uses to decide whether to bundle
// patch_ops into a runnable script.
func HasPatchContent(ops []state.PatchOp) bool {
	for _, op := range ops {
		if op.Text != "" {
			return true
		}
	}
	return false
}

// BundlePatchOps converts a patch-ops set into a runnable bash script:
// canonical (path, op) order, mkdir -p + base64-decode write per op (rm
// -f for deletes), then the language test-runner command or the
// experiment plan's commands, scoped under
// .synesis/experiments/<attemptID> when a plan with commands is given.
// Ported line-for-line in behavior from _bundle_patch_ops_to_script.
func BundlePatchOps(ops []state.PatchOp, language string, plan *ExperimentPlan, attemptID string) string {
	if len(ops) == 0 {
		return ""
	}

	sorted := make([]state.PatchOp, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Op < sorted[j].Op
	})

	lines := []string{"#!/bin/bash", "set -euo pipefail", ""}
	for _, op := range sorted {
		if op.Path == "" {
			continue
		}
		if op.Op == state.PatchOpDelete {
			lines = append(lines, fmt.Sprintf("rm -f %s", shQuote(op.Path)))
			continue
		}
		if dir := path.Dir(op.Path); dir != "." && dir != "" {
			lines = append(lines, fmt.Sprintf("mkdir -p %s", shQuote(dir)))
		}
		b64 := base64.StdEncoding.EncodeToString([]byte(op.Text))
		lines = append(lines, fmt.Sprintf("echo %s | base64 -d > %s", shQuote(b64), shQuote(op.Path)))
		lines = append(lines, "")
	}

	cmd := "true"
	if strings.EqualFold(language, "python") || strings.EqualFold(language, "py") {
		cmd = "python -m pytest"
	}
	hasExperimentCmds := plan != nil && len(plan.Commands) > 0
	if hasExperimentCmds {
		cmd = strings.Join(plan.Commands, " ")
	}

	if hasExperimentCmds && cmd != "true" {
		expDir := fmt.Sprintf(".synesis/experiments/%s", attemptID)
		lines = insertBeforeLast(lines, "mkdir -p "+shQuote(expDir))
		lines = insertBeforeLast(lines, "export SYNESIS_EXPERIMENT_DIR="+shQuote(expDir))
		lines = insertBeforeLast(lines, "")
	}
	lines = append(lines, cmd)
	return strings.Join(lines, "\n")
}

func insertBeforeLast(lines []string, item string) []string {
	if len(lines) == 0 {
		return append(lines, item)
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:len(lines)-1]...)
	out = append(out, item, lines[len(lines)-1])
	return out
}

// shQuote wraps a string in single quotes, escaping any embedded single
// quote for safe inclusion in the generated bash script.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

package sandbox

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/supernovae/synesis/internal/state"
)

// Classify derives the failure_type for a non-zero-exit sandbox result,
// per spec §4.5: lint failures take priority, then security, then an
// outstanding lsp diagnostic, else runtime. A clean exit returns the
// zero FailureType.
func Classify(result *ExecuteResult, lspDiagnostics []state.Diagnostic) FailureType {
	if result == nil || result.ExitCode == 0 {
		return ""
	}
	if !result.Lint.Passed {
		return state.FailureTypeLint
	}
	if !result.Security.Passed {
		return state.FailureTypeSecurity
	}
	if len(lspDiagnostics) > 0 {
		return state.FailureTypeLSP
	}
	return state.FailureTypeRuntime
}

// exceptionClassPattern scans stderr for an exception/error class name,
// e.g. "ValueError", "TimeoutException".
var exceptionClassPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*(?:Error|Exception)\b`)

const maxStderrScanChars = 200

// Fingerprint produces a stable "{stage}:{exit_code}:{token}" identifier
// for deduplicating identical failures across revision attempts, where
// token is the first exception/error class name found in the leading
// slice of stderr, or "unknown" when none is found.
func Fingerprint(failureType FailureType, exitCode int, stderr string) string {
	scan := stderr
	if len(scan) > maxStderrScanChars {
		scan = scan[:maxStderrScanChars]
	}
	token := "unknown"
	if m := exceptionClassPattern.FindString(scan); m != "" {
		token = m
	}
	stage := string(failureType)
	if stage == "" {
		stage = "unknown"
	}
	return stage + ":" + strconv.Itoa(exitCode) + ":" + token
}

// SameFailure reports whether fp has already been recorded in seen,
// driving the executor's same-failure short-circuit (skip another
// identical revision attempt, go straight to the postmortem path).
func SameFailure(fp string, seen []string) bool {
	for _, s := range seen {
		if s == fp {
			return true
		}
	}
	return false
}

// summarizeFailure builds a short human-readable failure description
// from an execute result, used for fail-fast cache entries.
func summarizeFailure(result *ExecuteResult) string {
	var b strings.Builder
	if !result.Lint.Passed {
		b.WriteString("Lint: ")
		b.WriteString(truncateStr(result.Lint.Output, 256))
		b.WriteString(". ")
	}
	if !result.Security.Passed {
		b.WriteString("Security issues found. ")
	}
	if result.Execution.Output != "" {
		b.WriteString("Runtime: ")
		b.WriteString(truncateStr(result.Execution.Output, 256))
	}
	return b.String()
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Package sandbox defines the contract for running generated code and
// patch bundles in an isolated execution environment, classifying the
// outcome, and tracking the per-run execution budget.
//
// The actual container-isolation runtime is out of scope (spec
// Non-goals): this package defines the request/response shapes, the
// warm-pool-first-with-ephemeral-fallback dispatch, and the failure
// classification/fingerprinting that downstream stages consume.
package sandbox

import (
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// ExperimentPlan names the commands to run once a patch bundle has been
// materialized into a workspace, optionally scoped to a dedicated
// experiment directory so exploratory runs don't clobber the main tree.
type ExperimentPlan struct {
	Commands []string
}

// ExecuteRequest is the input to Execute: either a single generated
// script (Code non-empty) or a patch-ops bundle that gets assembled
// into a runnable script via BundlePatchOps.
type ExecuteRequest struct {
	Code           string
	PatchOps       []state.PatchOp
	Language       string
	ExperimentPlan *ExperimentPlan
	AttemptID      string
	ContextFiles   []string
	RequestID      string
}

// LintResult and SecurityResult mirror the sandbox runtime's structured
// JSON log sections, decoded from the execution result payload.
type LintResult struct {
	Passed bool
	Output string
}

// SecurityResult reports the security scan stage of the sandbox run.
type SecurityResult struct {
	Passed bool
	Output string
}

// ExecResult is the raw program-execution section of the sandbox result.
type ExecResult struct {
	Output string
}

// ExecuteResult is the structured outcome of one sandbox run.
type ExecuteResult struct {
	ExitCode       int
	Lint           LintResult
	Security       SecurityResult
	Execution      ExecResult
	Stdout         string
	Stderr         string
	PodName        string
	TopLevelError  string
	UsedWarmPool   bool
	RawJSON        string
	Latency        time.Duration
}

// FailureType aliases state.FailureType for call-site brevity; Classify
// always returns one of the sandbox-relevant values (lint, security,
// lsp, runtime) plus the empty value for a clean exit.
type FailureType = state.FailureType

// BudgetTracker enforces the per-traversal sandbox time ceiling (spec
// §7 "Sandbox time limit reached").
type BudgetTracker struct {
	MaxMinutes     float64
	MinutesUsed    float64
	MaxIterations  int
}

// ExceededMinutes reports whether the accumulated sandbox time has hit
// the configured ceiling.
func (b *BudgetTracker) ExceededMinutes() bool {
	return b.MinutesUsed >= b.MaxMinutes
}

// ConsumeMinutes records wall-clock time spent in the sandbox.
func (b *BudgetTracker) ConsumeMinutes(d time.Duration) {
	b.MinutesUsed += d.Minutes()
}

// ExceededIterations reports whether iteration has reached the
// configured revision-loop ceiling.
func (b *BudgetTracker) ExceededIterations(iteration int) bool {
	return b.MaxIterations > 0 && iteration >= b.MaxIterations
}

package sandbox

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supernovae/synesis/internal/state"
)

func TestBundlePatchOps_CanonicalOrderAndBase64Write(t *testing.T) {
	ops := []state.PatchOp{
		{Path: "b/file.py", Op: state.PatchOpAdd, Text: "print('b')"},
		{Path: "a/file.py", Op: state.PatchOpModify, Text: "print('a')"},
	}
	script := BundlePatchOps(ops, "python", nil, "attempt-1")
	require.NotEmpty(t, script)

	idxA := strings.Index(script, "a/file.py")
	idxB := strings.Index(script, "b/file.py")
	assert.Less(t, idxA, idxB, "a/file.py ops should be written before b/file.py")

	b64 := base64.StdEncoding.EncodeToString([]byte("print('a')"))
	assert.Contains(t, script, b64)
	assert.Contains(t, script, "python -m pytest")
}

func TestBundlePatchOps_DeleteOpEmitsRmF(t *testing.T) {
	ops := []state.PatchOp{{Path: "old.py", Op: state.PatchOpDelete}}
	script := BundlePatchOps(ops, "python", nil, "a1")
	assert.Contains(t, script, "rm -f 'old.py'")
}

func TestBundlePatchOps_ExperimentPlanScopesCommands(t *testing.T) {
	ops := []state.PatchOp{{Path: "x.py", Op: state.PatchOpAdd, Text: "x = 1"}}
	plan := &ExperimentPlan{Commands: []string{"python", "-m", "pytest", "-k", "test_x"}}
	script := BundlePatchOps(ops, "python", plan, "iter-2")
	assert.Contains(t, script, ".synesis/experiments/iter-2")
	assert.Contains(t, script, "SYNESIS_EXPERIMENT_DIR")
	assert.Contains(t, script, "python -m pytest -k test_x")
}

func TestBundlePatchOps_EmptyOpsReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", BundlePatchOps(nil, "python", nil, "x"))
}

func TestHasPatchContent(t *testing.T) {
	assert.False(t, HasPatchContent([]state.PatchOp{{Path: "a", Text: ""}}))
	assert.True(t, HasPatchContent([]state.PatchOp{{Path: "a", Text: "x"}}))
}

func TestClassify_LintTakesPriorityOverSecurity(t *testing.T) {
	result := &ExecuteResult{
		ExitCode: 1,
		Lint:     LintResult{Passed: false},
		Security: SecurityResult{Passed: false},
	}
	assert.Equal(t, state.FailureTypeLint, Classify(result, nil))
}

func TestClassify_SecurityBeforeLSP(t *testing.T) {
	result := &ExecuteResult{ExitCode: 1, Lint: LintResult{Passed: true}, Security: SecurityResult{Passed: false}}
	diags := []state.Diagnostic{{ID: "d1"}}
	assert.Equal(t, state.FailureTypeSecurity, Classify(result, diags))
}

func TestClassify_FallsBackToRuntime(t *testing.T) {
	result := &ExecuteResult{ExitCode: 1, Lint: LintResult{Passed: true}, Security: SecurityResult{Passed: true}}
	assert.Equal(t, state.FailureTypeRuntime, Classify(result, nil))
}

func TestClassify_CleanExitReturnsEmpty(t *testing.T) {
	result := &ExecuteResult{ExitCode: 0}
	assert.Equal(t, state.FailureType(""), Classify(result, nil))
}

func TestFingerprint_ExtractsExceptionClass(t *testing.T) {
	fp := Fingerprint(state.FailureTypeRuntime, 1, "Traceback...\nValueError: bad input\n")
	assert.Equal(t, "runtime:1:ValueError", fp)
}

func TestFingerprint_UnknownWhenNoExceptionClass(t *testing.T) {
	fp := Fingerprint(state.FailureTypeLint, 1, "line 3: unused import")
	assert.Equal(t, "lint:1:unknown", fp)
}

func TestSameFailure(t *testing.T) {
	seen := []string{"lint:1:unknown", "runtime:1:ValueError"}
	assert.True(t, SameFailure("runtime:1:ValueError", seen))
	assert.False(t, SameFailure("security:1:unknown", seen))
}

func TestBudgetTracker_ExceededMinutes(t *testing.T) {
	b := &BudgetTracker{MaxMinutes: 10}
	b.ConsumeMinutes(6 * time.Minute)
	assert.False(t, b.ExceededMinutes())
	b.ConsumeMinutes(5 * time.Minute)
	assert.True(t, b.ExceededMinutes())
}

func TestBudgetTracker_ExceededIterations(t *testing.T) {
	b := &BudgetTracker{MaxIterations: 3}
	assert.False(t, b.ExceededIterations(2))
	assert.True(t, b.ExceededIterations(3))
}

type stubWarmPoolPoster struct {
	body   []byte
	status int
	err    error
}

func (s *stubWarmPoolPoster) PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error) {
	return s.body, s.status, s.err
}

func TestWarmPoolClient_ExecuteDecodesSuccess(t *testing.T) {
	poster := &stubWarmPoolPoster{
		body:   []byte(`{"exit_code":0,"lint":{"passed":true},"security":{"passed":true}}`),
		status: 200,
	}
	c := NewWarmPoolClient("http://warm-pool", poster, 5*time.Second)
	result, err := c.Execute(context.Background(), ExecuteRequest{Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Lint.Passed)
	assert.True(t, result.UsedWarmPool)
}

func TestWarmPoolClient_NonOKStatusReturnsError(t *testing.T) {
	poster := &stubWarmPoolPoster{status: 503}
	c := NewWarmPoolClient("http://warm-pool", poster, 5*time.Second)
	_, err := c.Execute(context.Background(), ExecuteRequest{Code: "x", Language: "python"})
	assert.Error(t, err)
}

type stubEphemeralRunner struct {
	result     *ExecuteResult
	deleteCall string
}

func (s *stubEphemeralRunner) RunJob(ctx context.Context, namespace, runID, code, language string, timeout time.Duration) (*ExecuteResult, error) {
	return s.result, nil
}

func (s *stubEphemeralRunner) DeleteJob(ctx context.Context, namespace, runID string) error {
	s.deleteCall = runID
	return nil
}

func TestExecutor_FallsThroughToEphemeralWhenWarmPoolFails(t *testing.T) {
	poster := &stubWarmPoolPoster{status: 500}
	warmPool := NewWarmPoolClient("http://down", poster, time.Second)
	runner := &stubEphemeralRunner{result: &ExecuteResult{ExitCode: 0}}
	ephemeral := NewEphemeralJobClient(runner, "synesis-sandbox", 10*time.Second)

	exec := NewExecutor(warmPool, ephemeral, nil)
	result, err := exec.Execute(context.Background(), ExecuteRequest{Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	assert.False(t, result.UsedWarmPool)
	assert.Equal(t, 0, result.ExitCode)
}

func TestExecutor_CleanupSkippedForWarmPoolRun(t *testing.T) {
	runner := &stubEphemeralRunner{}
	ephemeral := NewEphemeralJobClient(runner, "ns", time.Second)
	exec := NewExecutor(nil, ephemeral, nil)
	err := exec.Cleanup(context.Background(), "attempt-1", true)
	require.NoError(t, err)
	assert.Empty(t, runner.deleteCall)
}

func TestExecutor_CleanupCallsEphemeralDelete(t *testing.T) {
	runner := &stubEphemeralRunner{}
	ephemeral := NewEphemeralJobClient(runner, "ns", time.Second)
	exec := NewExecutor(nil, ephemeral, nil)
	err := exec.Cleanup(context.Background(), "attempt-1", false)
	require.NoError(t, err)
	assert.Equal(t, "attempt-1", runner.deleteCall)
}

func TestMaterializeCode_BundlesPatchOpsWhenCodeEmpty(t *testing.T) {
	req := ExecuteRequest{
		PatchOps: []state.PatchOp{{Path: "a.py", Op: state.PatchOpAdd, Text: "x = 1"}},
		Language: "python",
	}
	code, lang := materializeCode(req)
	assert.Equal(t, "bash", lang)
	assert.Contains(t, code, "#!/bin/bash")
}

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Client executes one bundle of code in an isolated environment and
// returns the structured result. Two implementations satisfy it: a
// warm-pool HTTP client for low-latency reuse, and an ephemeral job
// client contract for cold, fully isolated runs.
type Client interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	Cleanup(ctx context.Context, attemptID string) error
}

// httpPoster is the minimal surface Client implementations need from
// internal/httpclient, kept narrow so this package doesn't import the
// concrete HTTP client.
type httpPoster interface {
	PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error)
}

// WarmPoolClient executes against a long-lived pre-warmed pod, reused
// across requests to avoid per-run container startup cost.
type WarmPoolClient struct {
	BaseURL string
	HTTP    httpPoster
	Timeout time.Duration
}

// NewWarmPoolClient constructs a WarmPoolClient against baseURL.
func NewWarmPoolClient(baseURL string, http httpPoster, timeout time.Duration) *WarmPoolClient {
	return &WarmPoolClient{BaseURL: baseURL, HTTP: http, Timeout: timeout}
}

type warmPoolPayload struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Filename string `json:"filename"`
}

// Execute posts the code to the warm pool's /execute endpoint and
// decodes its structured JSON response.
func (c *WarmPoolClient) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	code, language := materializeCode(req)
	filename := fmt.Sprintf("script.%s", Extension(language))

	body, status, err := c.HTTP.PostJSON(ctx, c.BaseURL+"/execute", warmPoolPayload{
		Language: language,
		Code:     code,
		Filename: filename,
	}, c.Timeout)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("warm pool returned status %d", status)
	}
	return decodeExecuteResult(body, true)
}

// Cleanup is a no-op for the warm pool: the pod is long-lived and
// reused by the next request, it is never torn down per-attempt.
func (c *WarmPoolClient) Cleanup(ctx context.Context, attemptID string) error {
	return nil
}

// EphemeralJobClient is the contract for a cold, fully isolated
// execution run (one container per attempt, deny-all networking,
// deleted after completion). The concrete orchestration backend
// (Kubernetes Job, or any other container runtime) is out of scope
// here: Runner is the seam a deployment wires in.
type EphemeralJobClient struct {
	Runner    EphemeralRunner
	Namespace string
	Timeout   time.Duration
}

// EphemeralRunner is implemented by whatever container-orchestration
// integration a deployment provides; this package only defines the
// request/response shape it must honor.
type EphemeralRunner interface {
	RunJob(ctx context.Context, namespace, runID, code, language string, timeout time.Duration) (*ExecuteResult, error)
	DeleteJob(ctx context.Context, namespace, runID string) error
}

// NewEphemeralJobClient constructs an EphemeralJobClient.
func NewEphemeralJobClient(runner EphemeralRunner, namespace string, timeout time.Duration) *EphemeralJobClient {
	return &EphemeralJobClient{Runner: runner, Namespace: namespace, Timeout: timeout}
}

// Execute delegates to the configured EphemeralRunner.
func (c *EphemeralJobClient) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	code, language := materializeCode(req)
	runID := req.AttemptID
	if runID == "" {
		runID = req.RequestID
	}
	result, err := c.Runner.RunJob(ctx, c.Namespace, runID, code, language, c.Timeout)
	if err != nil {
		return nil, err
	}
	result.UsedWarmPool = false
	return result, nil
}

// Cleanup best-effort deletes the ephemeral job/configmap for runID.
func (c *EphemeralJobClient) Cleanup(ctx context.Context, attemptID string) error {
	if c.Runner == nil {
		return nil
	}
	return c.Runner.DeleteJob(ctx, c.Namespace, attemptID)
}

// materializeCode resolves the code to execute for a request: when
// req.Code is empty but patch ops carry content, bundle them into a
// runnable bash script (the Two-Phase Commit path), matching the
// original's bundling fallback.
func materializeCode(req ExecuteRequest) (code, language string) {
	code, language = req.Code, req.Language
	if code == "" && HasPatchContent(req.PatchOps) {
		code = BundlePatchOps(req.PatchOps, language, req.ExperimentPlan, req.AttemptID)
		language = "bash"
	}
	return code, language
}

// decodeExecuteResult decodes a sandbox runtime's structured JSON
// response into an ExecuteResult, tolerating the warm pool's
// parse-failure shape (raw stdout/stderr at top level).
func decodeExecuteResult(body []byte, usedWarmPool bool) (*ExecuteResult, error) {
	var raw struct {
		ExitCode int `json:"exit_code"`
		Lint     *struct {
			Passed *bool  `json:"passed"`
			Output string `json:"output"`
		} `json:"lint"`
		Security *struct {
			Passed *bool  `json:"passed"`
			Output string `json:"output"`
		} `json:"security"`
		Execution struct {
			Output string `json:"output"`
		} `json:"execution"`
		Stdout  string `json:"stdout"`
		Stderr  string `json:"stderr"`
		PodName string `json:"pod_name"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return &ExecuteResult{
			ExitCode:      1,
			TopLevelError: "Failed to parse sandbox output",
			RawJSON:       string(truncateBytes(body, 4096)),
			UsedWarmPool:  usedWarmPool,
		}, nil
	}
	// lint/security default to passed when the section is absent,
	// matching the original's dict.get("passed", True).
	lintPassed, lintOutput := true, ""
	if raw.Lint != nil {
		lintOutput = raw.Lint.Output
		if raw.Lint.Passed != nil {
			lintPassed = *raw.Lint.Passed
		}
	}
	secPassed, secOutput := true, ""
	if raw.Security != nil {
		secOutput = raw.Security.Output
		if raw.Security.Passed != nil {
			secPassed = *raw.Security.Passed
		}
	}
	return &ExecuteResult{
		ExitCode:      raw.ExitCode,
		Lint:          LintResult{Passed: lintPassed, Output: lintOutput},
		Security:      SecurityResult{Passed: secPassed, Output: secOutput},
		Execution:     ExecResult{Output: raw.Execution.Output},
		Stdout:        raw.Stdout,
		Stderr:        raw.Stderr,
		PodName:       raw.PodName,
		TopLevelError: raw.Error,
		UsedWarmPool:  usedWarmPool,
		RawJSON:       string(body),
	}, nil
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

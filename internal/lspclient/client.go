// Package lspclient implements the LSP gateway collaborator client
// (spec §6/§12): a single POST /analyze call that runs a language's
// real diagnostic tool (basedpyright, tsc, cargo check, ...) against
// generated code and returns structured diagnostics. Never blocks the
// pipeline — on timeout, breaker trip, or gateway-reported skip, the
// caller degrades to lsp_analysis_skipped rather than failing the run.
package lspclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// poster is the narrow HTTP seam this package needs, matching
// internal/httpclient.Collaborator's PostJSON without importing its
// concrete type, the same seam pattern used by internal/llmclient and
// internal/retrieval.
type poster interface {
	PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error)
}

// Result is the outcome of one /analyze call.
type Result struct {
	Diagnostics    []state.Diagnostic
	Engine         string
	AnalysisTimeMS float64
	Skipped        bool
	Error          string
}

// HasErrors reports whether any diagnostic carries error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == "error" {
			return true
		}
	}
	return false
}

// Client is the contract the lsp stage depends on.
type Client interface {
	Analyze(ctx context.Context, code, language string) (*Result, error)
}

const maxAnalyzeCodeChars = 5000

// HTTPClient implements Client against the LSP gateway's /analyze
// endpoint.
type HTTPClient struct {
	BaseURL string
	HTTP    poster
	Timeout time.Duration
}

// NewHTTPClient builds an HTTPClient.
func NewHTTPClient(baseURL string, http poster, timeout time.Duration) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, HTTP: http, Timeout: timeout}
}

type analyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type wireDiagnostic struct {
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Rule     string `json:"rule"`
	Source   string `json:"source"`
}

type analyzeResponse struct {
	Diagnostics    []wireDiagnostic `json:"diagnostics"`
	Engine         string           `json:"engine"`
	AnalysisTimeMS float64          `json:"analysis_time_ms"`
	Skipped        bool             `json:"skipped"`
	Error          string           `json:"error"`
}

// diagnosticID derives a stable per-call identifier for a diagnostic,
// since the gateway's wire format carries no id field of its own.
func diagnosticID(engine string, index int, d wireDiagnostic) string {
	return engine + ":" + strconv.Itoa(d.Line) + ":" + strconv.Itoa(index)
}

// Analyze POSTs code+language to the gateway's /analyze endpoint. A
// gateway-reported skip or error is returned as a Result with
// Skipped=true rather than an error, matching the original's "never
// blocks the pipeline" contract — only a transport failure or non-2xx
// status surfaces as a Go error, leaving timeout/circuit-breaker
// handling to the caller's own degrade-and-continue logic.
func (c *HTTPClient) Analyze(ctx context.Context, code, language string) (*Result, error) {
	if code == "" || language == "" {
		return &Result{Skipped: true}, nil
	}

	truncated := code
	if len(truncated) > maxAnalyzeCodeChars {
		truncated = truncated[:maxAnalyzeCodeChars]
	}

	body, status, err := c.HTTP.PostJSON(ctx, strings.TrimRight(c.BaseURL, "/")+"/analyze", analyzeRequest{
		Code:     truncated,
		Language: language,
	}, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("lspclient: analyze: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("lspclient: analyze returned status %d", status)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lspclient: decode analyze response: %w", err)
	}

	if resp.Skipped || resp.Error != "" {
		return &Result{Skipped: true, Engine: resp.Engine, Error: resp.Error}, nil
	}

	diagnostics := make([]state.Diagnostic, len(resp.Diagnostics))
	for i, d := range resp.Diagnostics {
		if d.Severity == "" {
			d.Severity = "error"
		}
		diagnostics[i] = state.Diagnostic{
			ID:       diagnosticID(resp.Engine, i, d),
			Severity: d.Severity,
			Message:  formatDiagnosticMessage(d),
			File:     d.Source,
			Line:     d.Line,
		}
	}

	return &Result{
		Diagnostics:    diagnostics,
		Engine:         resp.Engine,
		AnalysisTimeMS: resp.AnalysisTimeMS,
		Skipped:        false,
	}, nil
}

// formatDiagnosticMessage renders a diagnostic the way the original's
// lsp_analyzer_node formats each entry for the worker's revision
// prompt: "[SEVERITY] L<line>:<col> (<source>[ <rule>]): <message>".
func formatDiagnosticMessage(d wireDiagnostic) string {
	ruleTag := ""
	if d.Rule != "" {
		ruleTag = " [" + d.Rule + "]"
	}
	source := d.Source
	return fmt.Sprintf("[%s] L%d:%d (%s%s): %s",
		strings.ToUpper(d.Severity), d.Line, d.Column, source, ruleTag, d.Message)
}

package lspclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPoster struct {
	body   []byte
	status int
	err    error
}

func (p stubPoster) PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error) {
	return p.body, p.status, p.err
}

func TestHTTPClient_Analyze_NoCodeOrLanguageSkips(t *testing.T) {
	c := NewHTTPClient("http://lsp", stubPoster{}, time.Second)

	result, err := c.Analyze(context.Background(), "", "python")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestHTTPClient_Analyze_Success(t *testing.T) {
	poster := stubPoster{status: 200, body: []byte(`{
		"diagnostics": [
			{"severity":"error","line":12,"column":4,"message":"undefined name 'foo'","rule":"F821","source":"basedpyright"},
			{"severity":"warning","line":3,"column":1,"message":"unused import","source":"basedpyright"}
		],
		"engine": "basedpyright",
		"analysis_time_ms": 42.5,
		"skipped": false
	}`)}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	result, err := c.Analyze(context.Background(), "def f(): return foo", "python")
	require.NoError(t, err)
	require.Len(t, result.Diagnostics, 2)
	assert.Equal(t, "basedpyright", result.Engine)
	assert.Equal(t, 42.5, result.AnalysisTimeMS)
	assert.False(t, result.Skipped)
	assert.Contains(t, result.Diagnostics[0].Message, "[ERROR]")
	assert.Contains(t, result.Diagnostics[0].Message, "[F821]")
	assert.Equal(t, 12, result.Diagnostics[0].Line)
	assert.True(t, result.HasErrors())
}

func TestHTTPClient_Analyze_GatewaySkippedIsNotError(t *testing.T) {
	poster := stubPoster{status: 200, body: []byte(`{"skipped":true,"engine":"tsc"}`)}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	result, err := c.Analyze(context.Background(), "const x = 1", "typescript")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Diagnostics)
}

func TestHTTPClient_Analyze_GatewayErrorIsNotError(t *testing.T) {
	poster := stubPoster{status: 200, body: []byte(`{"error":"tool crashed"}`)}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	result, err := c.Analyze(context.Background(), "fn main() {}", "rust")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "tool crashed", result.Error)
}

func TestHTTPClient_Analyze_NonOKStatusIsError(t *testing.T) {
	poster := stubPoster{status: 500}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	_, err := c.Analyze(context.Background(), "code", "python")
	assert.Error(t, err)
}

func TestHTTPClient_Analyze_TransportErrorPropagates(t *testing.T) {
	poster := stubPoster{err: assert.AnError}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	_, err := c.Analyze(context.Background(), "code", "python")
	assert.Error(t, err)
}

func TestHTTPClient_Analyze_NoErrorsWhenAllWarnings(t *testing.T) {
	poster := stubPoster{status: 200, body: []byte(`{
		"diagnostics": [{"severity":"warning","line":1,"message":"style nit","source":"tsc"}],
		"engine": "tsc"
	}`)}
	c := NewHTTPClient("http://lsp", poster, time.Second)

	result, err := c.Analyze(context.Background(), "code", "typescript")
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
}

package stages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced with language tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading commentary", `Here you go: {"a":1}`, `{"a":1}`},
		{"trailing commentary", `{"a":1} let me know if that helps`, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}

func TestCallStructured_DecodesResponse(t *testing.T) {
	llm := &fakeLLM{Content: "```json\n{\"decision\":\"forward\"}\n```"}
	var out struct {
		Decision string `json:"decision"`
	}
	resp, _, err := callStructured(t.Context(), llm, "test-model", "system", "user", &out)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "forward", out.Decision)
	assert.Equal(t, "test-model", llm.lastReq.Model)
}

func TestCallStructured_TransportError(t *testing.T) {
	llm := &fakeLLM{Err: errors.New("connection refused")}
	var out struct{}
	_, _, err := callStructured(t.Context(), llm, "test-model", "system", "user", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCallStructured_UndecodableResponse(t *testing.T) {
	llm := &fakeLLM{Content: "not json at all"}
	var out struct{}
	_, _, err := callStructured(t.Context(), llm, "test-model", "system", "user", &out)
	require.Error(t, err)
}

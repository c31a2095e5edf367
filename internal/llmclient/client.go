// Package llmclient implements the chat-completion collaborator
// client (spec §6): one pooled HTTP transport shared with every other
// external collaborator, OpenAI-compatible non-stream and streaming
// calls, wrapped in the same breaker/retry shape as every other
// internal/*client package.
package llmclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// ToolDefinition describes a tool available to the model, ported from
// the teacher's GenerateInput.Tools shape.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Request bundles one chat-completion call, generalizing the
// teacher's GenerateInput from a gRPC session payload to an
// HTTP-transported one.
type Request struct {
	Model       string
	Messages    []state.Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// ChunkType identifies the kind of streaming chunk, ported verbatim
// from the teacher's agent.ChunkType enumeration.
type ChunkType string

const (
	ChunkTypeText     ChunkType = "text"
	ChunkTypeThinking ChunkType = "thinking"
	ChunkTypeToolCall ChunkType = "tool_call"
	ChunkTypeUsage    ChunkType = "usage"
	ChunkTypeError    ChunkType = "error"
)

// Chunk is one unit of a streaming response.
type Chunk struct {
	Type      ChunkType
	Content   string // text|thinking
	ToolCall  *ToolCall
	Usage     *Usage
	Error     string
	Retryable bool
}

// Usage reports token consumption for a completed call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response is a fully-materialized, non-streaming chat completion.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Client is the chat-completion contract every stage depends on
// (classifier, supervisor, planner, worker, critic).
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// poster is the narrow HTTP seam this package needs, matching
// internal/httpclient.Collaborator's PostJSON signature without
// importing its concrete type.
type poster interface {
	PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error)
}

// streamDoer performs a raw streaming POST, returning the live
// response body reader — PostJSON buffers the whole body, which
// defeats SSE streaming, so Stream needs its own narrow transport
// seam instead.
type streamDoer interface {
	DoStream(ctx context.Context, url string, payload any) (*http.Response, error)
}

// HTTPClient implements Client against an OpenAI-compatible
// /v1/chat/completions endpoint.
type HTTPClient struct {
	BaseURL string
	Poster  poster
	Streams streamDoer
	Timeout time.Duration
}

// NewHTTPClient builds an HTTPClient.
func NewHTTPClient(baseURL string, p poster, s streamDoer, timeout time.Duration) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Poster: p, Streams: s, Timeout: timeout}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

func toWireMessages(msgs []state.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

type wireChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete issues a non-streaming chat completion.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (*Response, error) {
	wire := wireRequest{
		Model:       req.Model,
		Messages:    toWireMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	body, status, err := c.Poster.PostJSON(ctx, c.BaseURL+"/v1/chat/completions", wire, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("llmclient: complete: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("llmclient: complete returned status %d", status)
	}

	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llmclient: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llmclient: response had no choices")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

type wireStreamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type wireStreamChunk struct {
	Choices []wireStreamChoice `json:"choices"`
}

// Stream issues a streaming chat completion, decoding the
// OpenAI-compatible "data: {...}"/"data: [DONE]" SSE framing into
// Chunk values on the returned channel, which is closed when the
// stream ends (mirroring the teacher's GenerateStream channel
// contract, generalized from gRPC Recv() to SSE line scanning).
func (c *HTTPClient) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	wire := wireRequest{
		Model:       req.Model,
		Messages:    toWireMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	resp, err := c.Streams.DoStream(ctx, c.BaseURL+"/v1/chat/completions", wire)
	if err != nil {
		return nil, fmt.Errorf("llmclient: stream: %w", err)
	}

	chunks := make(chan Chunk, 32)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var sc wireStreamChunk
			if err := json.Unmarshal([]byte(payload), &sc); err != nil {
				select {
				case chunks <- Chunk{Type: ChunkTypeError, Error: err.Error()}:
				case <-ctx.Done():
				}
				return
			}
			if len(sc.Choices) == 0 {
				continue
			}
			content := sc.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			select {
			case chunks <- Chunk{Type: ChunkTypeText, Content: content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

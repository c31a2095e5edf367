package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/supernovae/synesis/internal/convmemory"
	"github.com/supernovae/synesis/internal/routing"
	"github.com/supernovae/synesis/internal/state"
)

// chatMessage is one OpenAI-compatible conversation turn.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// retrievalParams lets a caller override the context pack builder's
// default retrieval strategy for this one request (spec §6).
type retrievalParams struct {
	Strategy string `json:"strategy,omitempty"`
	Reranker string `json:"reranker,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// chatCompletionRequest is the body of POST /v1/chat/completions.
type chatCompletionRequest struct {
	Model     string           `json:"model"`
	Messages  []chatMessage    `json:"messages"`
	Stream    bool             `json:"stream"`
	User      string           `json:"user,omitempty"`
	Retrieval *retrievalParams `json:"retrieval,omitempty"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionResponse is the non-streaming response body.
type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   chatCompletionUsage    `json:"usage"`
}

type streamDelta struct {
	Content string `json:"content,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// chatCompletionChunk is one "data: {...}" SSE frame of a streaming
// response, matching the OpenAI chat.completion.chunk object shape.
type chatCompletionChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

// pendingQuestionTTL bounds how long a clarifying question stays
// resumable before convmemory.ExpireStale reclaims it.
const pendingQuestionTTL = 15 * time.Minute

// recordPendingQuestion persists a clarifying question so the user's
// next message resumes the traversal at s.CurrentNode instead of
// re-entering the classifier (spec §4.6 "Entry" / §4.8 at-most-one
// pending question per user).
func (s *Server) recordPendingQuestion(ctx context.Context, userID string, out *state.State) {
	if s.memory == nil || !out.NeedsClarification {
		return
	}
	_ = s.memory.SetPending(ctx, userID, convmemory.PendingQuestion{
		Source:    out.ClarificationSource,
		Context:   out.Error,
		ExpiresAt: time.Now().Add(pendingQuestionTTL),
	})
}

// pendingQuestionSources is tried in order to discover whether this
// user has an outstanding clarification question, since
// convmemory.Store.ClearOrMatch requires the caller to name the
// source it expects (spec §4.8's at-most-one-pending-question
// invariant guarantees at most one of these matches).
var pendingQuestionSources = []string{routing.StageWorker, routing.StagePlanner, routing.StageSupervisor}

func (s *Server) resolveResumeStage(ctx context.Context, userID string) (string, *convmemory.PendingQuestion) {
	if s.memory == nil {
		return "", nil
	}
	for _, src := range pendingQuestionSources {
		pq, err := s.memory.ClearOrMatch(ctx, userID, src)
		if err == nil && pq != nil {
			return routing.ResumeStageFor(src), pq
		}
	}
	return "", nil
}

// chatCompletionsHandler handles POST /v1/chat/completions, running
// one full routing.Graph traversal per request and rendering the
// result either as a single JSON response or as a Server-Sent Events
// stream of status/delta frames terminated by "data: [DONE]" (spec
// §6's Client API).
func (s *Server) chatCompletionsHandler(c *echo.Context) error {
	if s.shutdown {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	}

	var req chatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages must not be empty")
	}

	userID := resolveUser(c, req.User)
	model := req.Model
	if model == "" {
		model = s.model
	}

	runID := uuid.NewString()
	if req.Stream {
		s.streamTraversal(c, req, userID, runID, model)
		return nil
	}
	s.respondTraversal(c, req, userID, runID, model)
	return nil
}

func lastUserMessage(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func toStateMessages(msgs []chatMessage) []state.Message {
	out := make([]state.Message, len(msgs))
	for i, m := range msgs {
		out[i] = state.Message{Role: state.Role(m.Role), Content: m.Content}
	}
	return out
}

func (s *Server) newTraversalState(ctx context.Context, req chatCompletionRequest, userID, runID, requestID string) (*state.State, string) {
	task := lastUserMessage(req.Messages)
	st := state.New(runID, userID, task, s.maxIter)
	st.Messages = toStateMessages(req.Messages)
	st.RequestID = requestID

	if req.Retrieval != nil {
		st.RetrievalParams = &state.RetrievalParams{
			Strategy: req.Retrieval.Strategy,
			Reranker: req.Retrieval.Reranker,
			TopK:     req.Retrieval.TopK,
		}
	}

	resumeStage, pq := s.resolveResumeStage(ctx, userID)
	if pq != nil {
		st.SupervisorGuard = true
	}
	return st, resumeStage
}

func (s *Server) recordTurn(ctx context.Context, userID, role, content string) {
	if s.memory == nil || content == "" {
		return
	}
	_ = s.memory.StoreTurn(ctx, userID, convmemory.Turn{Role: role, Content: content, Timestamp: time.Now()})
}

// respondTraversal runs the traversal to completion and writes one
// non-streaming JSON response.
func (s *Server) respondTraversal(c *echo.Context, req chatCompletionRequest, userID, runID, model string) {
	ctx := c.Request().Context()
	requestID, _ := c.Get("request_id").(string)
	st, resumeStage := s.newTraversalState(ctx, req, userID, runID, requestID)
	s.recordTurn(ctx, userID, "user", lastUserMessage(req.Messages))

	out, err := s.graph.RunTraversal(ctx, st, resumeStage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.recordPendingQuestion(ctx, userID, out)
	text := responseText(out)
	s.recordTurn(ctx, userID, "assistant", text)

	c.JSON(http.StatusOK, &chatCompletionResponse{
		ID:      "chatcmpl-" + runID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: text},
			FinishReason: finishReason(out),
		}},
		Usage: chatCompletionUsage{},
	})
}

// streamTraversal runs the traversal to completion, then renders a
// Server-Sent Events stream: one "event: status" frame per completed
// stage (spec §6 "optional named status progress events keyed by
// current stage"), followed by the final text broken into delta
// chunks, terminated by "data: [DONE]". The underlying graph call is
// a single blocking traversal rather than token-level model
// streaming, so the response is buffered and replayed as chunks —
// status frames still arrive as each stage completes.
func (s *Server) streamTraversal(c *echo.Context, req chatCompletionRequest, userID, runID, model string) {
	w := c.Response()
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := interface{}(w).(http.Flusher)
	writeFrame := func(event, data string) {
		if event != "" {
			fmt.Fprintf(w, "event: %s\n", event)
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if canFlush {
			flusher.Flush()
		}
	}

	ctx := c.Request().Context()
	requestID, _ := c.Get("request_id").(string)
	st, resumeStage := s.newTraversalState(ctx, req, userID, runID, requestID)
	s.recordTurn(ctx, userID, "user", lastUserMessage(req.Messages))

	onStage := func(stageName string) {
		b, _ := json.Marshal(map[string]string{"stage": stageName})
		writeFrame("status", string(b))
	}

	out, err := s.graph.RunTraversal(ctx, st, resumeStage, onStage)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		writeFrame("error", string(b))
		writeFrame("", "[DONE]")
		return
	}

	s.recordPendingQuestion(ctx, userID, out)
	text := responseText(out)
	s.recordTurn(ctx, userID, "assistant", text)

	for _, chunk := range chunkText(text, 64) {
		frame := chatCompletionChunk{
			ID:      "chatcmpl-" + runID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []streamChoice{{Index: 0, Delta: streamDelta{Content: chunk}}},
		}
		b, _ := json.Marshal(frame)
		writeFrame("", string(b))
	}

	reason := finishReason(out)
	final := chatCompletionChunk{
		ID:      "chatcmpl-" + runID,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []streamChoice{{Index: 0, Delta: streamDelta{}, FinishReason: &reason}},
	}
	b, _ := json.Marshal(final)
	writeFrame("", string(b))
	writeFrame("", "[DONE]")
}

// responseText synthesizes the assistant-facing text from whichever
// terminal state field the traversal populated: an error or
// clarifying question (s.Error doubles as both, per spec §4.6 "a
// clarification question always terminates to respond carrying the
// question"), otherwise the worker's unified diff, otherwise any
// generated code, otherwise the critic's closing feedback.
func responseText(s *state.State) string {
	switch {
	case s.Error != "":
		return s.Error
	case s.UnifiedDiff != "":
		return s.UnifiedDiff
	case s.GeneratedCode != "":
		return s.GeneratedCode
	case s.CriticFeedback != "":
		return s.CriticFeedback
	default:
		return "(no response produced)"
	}
}

func finishReason(s *state.State) string {
	if s.StopReason != state.StopReasonNone {
		return "stop"
	}
	if s.IterationCount >= s.MaxIterations {
		return "length"
	}
	return "stop"
}

func chunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

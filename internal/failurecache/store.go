package failurecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// FailureRecord is a durable record of a past execution failure, the
// shape persisted to the vector store's failures_v1 collection.
type FailureRecord struct {
	FailureID       string
	Code            string
	ErrorOutput     string
	ExitCode        int
	ErrorType       state.FailureType
	Language        string
	TaskDescription string
	Resolution      string
	Timestamp       time.Time
}

const (
	maxStoreCodeChars            = 8192
	maxStoreErrorOutputChars     = 4096
	maxStoreTaskDescriptionChars = 2048
	maxStoreResolutionChars      = 8192
)

// FailureStore is the contract the worker consults before generating
// code, and the sandbox path writes to after a failed run. Embedding
// and vector indexing live behind the implementation; callers only
// see code/error/task-description text in and ranked records out.
type FailureStore interface {
	Upsert(ctx context.Context, record FailureRecord) error
	QuerySimilar(ctx context.Context, code, errorOutput string, topK int) ([]FailureRecord, error)
}

// httpPoster is the minimal HTTP surface an HTTP-backed FailureStore
// needs, mirroring internal/sandbox's narrow seam so this package does
// not import internal/httpclient's concrete type.
type httpPoster interface {
	PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error)
}

// Embedder produces a vector embedding for text, the embedding-service
// collaborator the original calls before every upsert/query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPFailureStore implements FailureStore against the retrieval
// service's failures_v1 collection, embedding (code + error) via the
// Embedder collaborator before every upsert, matching the original's
// _embed-then-upsert sequencing.
type HTTPFailureStore struct {
	BaseURL  string
	HTTP     httpPoster
	Embedder Embedder
	Timeout  time.Duration
}

// NewHTTPFailureStore builds an HTTPFailureStore.
func NewHTTPFailureStore(baseURL string, http httpPoster, embedder Embedder, timeout time.Duration) *HTTPFailureStore {
	return &HTTPFailureStore{BaseURL: baseURL, HTTP: http, Embedder: embedder, Timeout: timeout}
}

func failureID(code, errorOutput string) string {
	raw := truncateStr(code, 2048) + ":" + truncateStr(errorOutput, 1024)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:64]
}

type upsertPayload struct {
	FailureID       string    `json:"failure_id"`
	Code            string    `json:"code"`
	ErrorOutput     string    `json:"error_output"`
	ExitCode        int       `json:"exit_code"`
	ErrorType       string    `json:"error_type"`
	Language        string    `json:"language"`
	TaskDescription string    `json:"task_description"`
	Resolution      string    `json:"resolution"`
	Embedding       []float32 `json:"embedding"`
	Timestamp       int64     `json:"timestamp"`
}

// Upsert embeds (code + error output) and writes the record to the
// failures_v1 collection.
func (s *HTTPFailureStore) Upsert(ctx context.Context, record FailureRecord) error {
	embedText := truncateStr(record.Code, 2048) + "\n\nERROR: " + truncateStr(record.ErrorOutput, 1024)
	embedding, err := s.Embedder.Embed(ctx, embedText)
	if err != nil {
		return fmt.Errorf("failurecache: embed failure record: %w", err)
	}

	fid := record.FailureID
	if fid == "" {
		fid = failureID(record.Code, record.ErrorOutput)
	}

	payload := upsertPayload{
		FailureID:       fid,
		Code:            truncateStr(record.Code, maxStoreCodeChars),
		ErrorOutput:     truncateStr(record.ErrorOutput, maxStoreErrorOutputChars),
		ExitCode:        record.ExitCode,
		ErrorType:       string(record.ErrorType),
		Language:        record.Language,
		TaskDescription: truncateStr(record.TaskDescription, maxStoreTaskDescriptionChars),
		Resolution:      truncateStr(record.Resolution, maxStoreResolutionChars),
		Embedding:       embedding,
		Timestamp:       time.Now().Unix(),
	}

	_, status, err := s.HTTP.PostJSON(ctx, s.BaseURL+"/collections/failures_v1/upsert", payload, s.Timeout)
	if err != nil {
		return fmt.Errorf("failurecache: upsert: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("failurecache: upsert returned status %d", status)
	}
	return nil
}

type querySimilarPayload struct {
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"top_k"`
}

type querySimilarResponse struct {
	Results []FailureRecord `json:"results"`
}

// QuerySimilar embeds (code + error output) and returns the topK
// nearest failure records by cosine similarity.
func (s *HTTPFailureStore) QuerySimilar(ctx context.Context, code, errorOutput string, topK int) ([]FailureRecord, error) {
	embedText := truncateStr(code, 2048) + "\n\nERROR: " + truncateStr(errorOutput, 1024)
	embedding, err := s.Embedder.Embed(ctx, embedText)
	if err != nil {
		return nil, fmt.Errorf("failurecache: embed query: %w", err)
	}

	body, status, err := s.HTTP.PostJSON(ctx, s.BaseURL+"/collections/failures_v1/query", querySimilarPayload{
		Embedding: embedding,
		TopK:      topK,
	}, s.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failurecache: query similar: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("failurecache: query similar returned status %d", status)
	}

	var resp querySimilarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failurecache: decode query response: %w", err)
	}
	return resp.Results, nil
}

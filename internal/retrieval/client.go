// Package retrieval implements the hybrid vector+BM25 retrieval
// collaborator client (spec §6): embeddings, reranking, and
// vector-store query/upsert against the synesis_catalog collection,
// satisfying internal/contextpack.Retriever so the curator never talks
// HTTP directly.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/supernovae/synesis/internal/state"
)

// poster is the narrow HTTP seam this package needs from a breaker-
// wrapped collaborator client (internal/httpclient.Collaborator
// satisfies it), kept local per the pattern already established in
// internal/sandbox and internal/failurecache.
type poster interface {
	PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error)
}

// Client implements internal/contextpack.Retriever plus the
// embed/rerank/upsert operations the curator and failure-cache paths
// need from the shared retrieval service.
type Client struct {
	BaseURL string
	HTTP    poster
	Timeout time.Duration
}

// NewClient builds a retrieval Client.
func NewClient(baseURL string, http poster, timeout time.Duration) *Client {
	return &Client{BaseURL: baseURL, HTTP: http, Timeout: timeout}
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed satisfies internal/failurecache.Embedder, calling the shared
// embedding endpoint with a single input string.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, status, err := c.HTTP.PostJSON(ctx, c.BaseURL+"/embeddings", embedRequest{
		Input: []string{text},
		Model: "synesis-embedder",
	}, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("retrieval: embed returned status %d", status)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("retrieval: decode embed response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("retrieval: embed response had no data")
	}
	return resp.Data[0].Embedding, nil
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank scores results against query via the external cross-encoder
// (bge) reranker service and returns them sorted by descending
// RerankScore, truncated to topK. Scores are returned aligned to the
// input passage order, matching the bge-reranker wire contract — not
// an index-keyed result list — so a malformed or short scores array
// degrades gracefully to a zero score rather than dropping entries.
func (c *Client) Rerank(ctx context.Context, query string, results []state.RetrievalResult, topK int) ([]state.RetrievalResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Text
	}

	body, status, err := c.HTTP.PostJSON(ctx, c.BaseURL+"/rerank", rerankRequest{
		Query:    query,
		Passages: passages,
	}, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("retrieval: rerank: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("retrieval: rerank returned status %d", status)
	}

	var resp rerankResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("retrieval: decode rerank response: %w", err)
	}

	out := make([]state.RetrievalResult, len(results))
	copy(out, results)
	for i := range out {
		if i < len(resp.Scores) {
			out[i].RerankScore = resp.Scores[i]
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })

	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

type queryRequest struct {
	Query       string   `json:"query"`
	Collections []string `json:"collections"`
	TopK        int      `json:"top_k"`
}

// wireRetrievalResult mirrors state.RetrievalResult's fields with
// explicit snake_case wire tags, since RetrievalResult itself carries
// no json tags (its Go field names are what internal callers use).
type wireRetrievalResult struct {
	Text            string  `json:"text"`
	Source          string  `json:"source"`
	Collection      string  `json:"collection"`
	RetrievalSource string  `json:"retrieval_source"`
	VectorScore     float64 `json:"vector_score"`
	BM25Score       float64 `json:"bm25_score"`
	RRFScore        float64 `json:"rrf_score"`
	RerankScore     float64 `json:"rerank_score"`
	RepoLicense     string  `json:"repo_license"`
}

func (w wireRetrievalResult) toResult() state.RetrievalResult {
	return state.RetrievalResult{
		Text:            w.Text,
		Source:          w.Source,
		Collection:      w.Collection,
		RetrievalSource: w.RetrievalSource,
		VectorScore:     w.VectorScore,
		BM25Score:       w.BM25Score,
		RRFScore:        w.RRFScore,
		RerankScore:     w.RerankScore,
		RepoLicense:     w.RepoLicense,
	}
}

type queryResponse struct {
	Results []wireRetrievalResult `json:"results"`
}

// Retrieve satisfies internal/contextpack.Retriever: queries the
// hybrid vector+BM25 index across collections and returns scored
// RetrievalResults (RRF-fused server-side; this client does not
// re-fuse scores).
func (c *Client) Retrieve(ctx context.Context, query string, collections []string, topK int) ([]state.RetrievalResult, error) {
	body, status, err := c.HTTP.PostJSON(ctx, c.BaseURL+"/query", queryRequest{
		Query:       query,
		Collections: collections,
		TopK:        topK,
	}, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("retrieval: retrieve: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("retrieval: retrieve returned status %d", status)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("retrieval: decode retrieve response: %w", err)
	}
	out := make([]state.RetrievalResult, len(resp.Results))
	for i, w := range resp.Results {
		out[i] = w.toResult()
	}
	return out, nil
}

func fromResult(r state.RetrievalResult) wireRetrievalResult {
	return wireRetrievalResult{
		Text:            r.Text,
		Source:          r.Source,
		Collection:      r.Collection,
		RetrievalSource: r.RetrievalSource,
		VectorScore:     r.VectorScore,
		BM25Score:       r.BM25Score,
		RRFScore:        r.RRFScore,
		RerankScore:     r.RerankScore,
		RepoLicense:     r.RepoLicense,
	}
}

type upsertRequest struct {
	Collection string                `json:"collection"`
	Documents  []wireRetrievalResult `json:"documents"`
	Embeddings [][]float32           `json:"embeddings"`
}

// Upsert writes pre-embedded documents into collection (used for
// archival paths like failure-store upserts and catalog ingestion).
func (c *Client) Upsert(ctx context.Context, collection string, results []state.RetrievalResult, embeddings [][]float32) error {
	docs := make([]wireRetrievalResult, len(results))
	for i, r := range results {
		docs[i] = fromResult(r)
	}

	_, status, err := c.HTTP.PostJSON(ctx, c.BaseURL+"/upsert", upsertRequest{
		Collection: collection,
		Documents:  docs,
		Embeddings: embeddings,
	}, c.Timeout)
	if err != nil {
		return fmt.Errorf("retrieval: upsert: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("retrieval: upsert returned status %d", status)
	}
	return nil
}

package failurecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailFastCache_PutAndGet(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	c.Put("fix the parser", "python", OutcomeFailure, "def f(): pass", "SyntaxError: bad")

	entry, ok := c.Get("fix the parser", "python")
	require.True(t, ok)
	assert.Equal(t, OutcomeFailure, entry.Outcome)
	assert.Equal(t, 1, entry.HitCount)
}

func TestFailFastCache_KeyIsCaseAndWhitespaceInsensitive(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	c.Put("  Fix The Parser  ", "Python", OutcomeSuccess, "code", "")

	_, ok := c.Get("fix the parser", "python")
	assert.True(t, ok)
}

func TestFailFastCache_MissReturnsFalse(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	_, ok := c.Get("never stored", "go")
	assert.False(t, ok)
}

func TestFailFastCache_TTLExpiry(t *testing.T) {
	c := NewFailFastCache(10, -time.Second)
	c.Put("task", "go", OutcomeSuccess, "code", "")

	_, ok := c.Get("task", "go")
	assert.False(t, ok)
}

func TestFailFastCache_LRUEvictsAtMaxSize(t *testing.T) {
	c := NewFailFastCache(2, time.Hour)
	c.Put("a", "go", OutcomeSuccess, "", "")
	c.Put("b", "go", OutcomeSuccess, "", "")
	c.Put("c", "go", OutcomeSuccess, "", "")

	_, ok := c.Get("a", "go")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestFailFastCache_HintsForSuccess(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	c.Put("task", "go", OutcomeSuccess, "func main() {}", "")

	hints := c.Hints("task", "go")
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0], "succeeded before")
}

func TestFailFastCache_HintsForFailure(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	c.Put("task", "go", OutcomeFailure, "broken code", "nil pointer dereference")

	hints := c.Hints("task", "go")
	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], "failed before")
	assert.Contains(t, hints[1], "Failed code to avoid")
}

func TestFailFastCache_HintsEmptyOnMiss(t *testing.T) {
	c := NewFailFastCache(10, time.Hour)
	assert.Empty(t, c.Hints("nope", "go"))
}

type stubPoster struct {
	body   []byte
	status int
	err    error
}

func (p stubPoster) PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error) {
	return p.body, p.status, p.err
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (e stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

func TestHTTPFailureStore_UpsertEmbedsAndPosts(t *testing.T) {
	poster := stubPoster{status: 200}
	store := NewHTTPFailureStore("http://retrieval", poster, stubEmbedder{vec: []float32{0.1, 0.2}}, time.Second)

	err := store.Upsert(context.Background(), FailureRecord{
		Code:        "print(1)",
		ErrorOutput: "boom",
		ExitCode:    1,
		Language:    "python",
	})
	require.NoError(t, err)
}

func TestHTTPFailureStore_UpsertPropagatesEmbedError(t *testing.T) {
	poster := stubPoster{status: 200}
	store := NewHTTPFailureStore("http://retrieval", poster, stubEmbedder{err: assert.AnError}, time.Second)

	err := store.Upsert(context.Background(), FailureRecord{Code: "x"})
	assert.Error(t, err)
}

func TestHTTPFailureStore_QuerySimilarDecodesResults(t *testing.T) {
	body := []byte(`{"results":[{"FailureID":"abc","Language":"python"}]}`)
	poster := stubPoster{body: body, status: 200}
	store := NewHTTPFailureStore("http://retrieval", poster, stubEmbedder{vec: []float32{0.1}}, time.Second)

	results, err := store.QuerySimilar(context.Background(), "code", "error", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abc", results[0].FailureID)
}

func TestHTTPFailureStore_QuerySimilarNonOKStatus(t *testing.T) {
	poster := stubPoster{status: 500}
	store := NewHTTPFailureStore("http://retrieval", poster, stubEmbedder{vec: []float32{0.1}}, time.Second)

	_, err := store.QuerySimilar(context.Background(), "code", "error", 3)
	assert.Error(t, err)
}

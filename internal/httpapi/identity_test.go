package httpapi

import (
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
)

func newContext(rec *httptest.ResponseRecorder, headers map[string]string) *echo.Context {
	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	e := echo.New()
	return e.NewContext(req, rec)
}

func TestResolveUser_BodyUserFieldWins(t *testing.T) {
	c := newContext(httptest.NewRecorder(), map[string]string{"Authorization": "Bearer abc123"})
	assert.Equal(t, "alice", resolveUser(c, "alice"))
}

func TestResolveUser_FallsBackToBearerTokenHash(t *testing.T) {
	c := newContext(httptest.NewRecorder(), map[string]string{"Authorization": "Bearer abc123"})
	got := resolveUser(c, "")
	assert.NotEqual(t, "abc123", got)
	assert.Contains(t, got, "tok_")
}

func TestResolveUser_SameTokenHashesToSameUser(t *testing.T) {
	c1 := newContext(httptest.NewRecorder(), map[string]string{"Authorization": "Bearer same-token"})
	c2 := newContext(httptest.NewRecorder(), map[string]string{"Authorization": "Bearer same-token"})
	assert.Equal(t, resolveUser(c1, ""), resolveUser(c2, ""))
}

func TestResolveUser_NoUserNoTokenIsAnonymous(t *testing.T) {
	c := newContext(httptest.NewRecorder(), nil)
	assert.Equal(t, anonymousUser, resolveUser(c, ""))
}

func TestResolveUser_MalformedAuthHeaderIsAnonymous(t *testing.T) {
	c := newContext(httptest.NewRecorder(), map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	assert.Equal(t, anonymousUser, resolveUser(c, ""))
}

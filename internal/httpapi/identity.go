package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	echo "github.com/labstack/echo/v5"
)

// anonymousUser is returned when a request carries neither a `user`
// field nor a bearer token, generalizing the teacher's extractAuthor
// fallback ("api-client") to Synesis's identity scheme (spec §6 "user
// field → bearer-token hash → anonymous").
const anonymousUser = "anonymous"

// resolveUser implements spec §6's identity-resolution priority:
// the request body's `user` field wins when present; otherwise an
// opaque, non-reversible hash of the bearer token identifies the
// caller across requests without the server ever storing the raw
// token; otherwise the caller is anonymous.
func resolveUser(c *echo.Context, bodyUser string) string {
	if bodyUser != "" {
		return bodyUser
	}
	if token := bearerToken(c); token != "" {
		return hashToken(token)
	}
	return anonymousUser
}

func bearerToken(c *echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

// hashToken returns a short, opaque, stable identifier for a bearer
// token. SHA-256 rather than a reversible encoding so the server never
// needs to retain (or risk leaking) the token itself to tell two
// requests from the same caller apart.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "tok_" + hex.EncodeToString(sum[:])[:16]
}

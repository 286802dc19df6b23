// ABOUTME: Tests for the bearer-token HTTP middleware.
// ABOUTME: Verifies rejection paths and subject propagation into handlers.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiddlewareTest(t *testing.T) (*JWTVerifier, http.Handler) {
	t.Helper()
	verifier := setupVerifier(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFrom(r.Context())))
	})
	return verifier, Middleware(verifier, nil)(next)
}

func TestMiddleware(t *testing.T) {
	verifier, handler := setupMiddlewareTest(t)

	t.Run("passes a valid token and exposes the subject", func(t *testing.T) {
		token, err := verifier.Generate("desktop-client", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "desktop-client", w.Body.String())
	})

	rejected := map[string]string{
		"missing header": "",
		"basic auth":     "Basic dXNlcjpwYXNz",
		"empty bearer":   "Bearer ",
		"bad token":      "Bearer not-a-token",
	}
	for name, header := range rejected {
		t.Run("rejects "+name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSubjectFromAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, SubjectFrom(req.Context()))
}

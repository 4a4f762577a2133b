// README: Auth middleware tests (verifier and dev-header paths).
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"rumbo/internal/infra"
)

type fakeVerifier struct {
	uid string
	err error
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.AuthToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &infra.AuthToken{UID: f.uid}, nil
}

func newAuthRouter(verifier infra.TokenVerifier) http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Auth(verifier), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestAuthDevHeaderFallback(t *testing.T) {
	h := newAuthRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "u42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthVerifier(t *testing.T) {
	h := newAuthRouter(&fakeVerifier{uid: "firebase-uid"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "firebase-uid", rec.Body.String())

	// With a verifier configured the dev header is not honored.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "u42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthVerifierRejects(t *testing.T) {
	h := newAuthRouter(&fakeVerifier{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

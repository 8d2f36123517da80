package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cgtfolio/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

var csrfTestKey = []byte("0123456789abcdef0123456789abcdef")

func issueToken(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	GetCSRFToken(csrfTestKey)(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	res := rec.Result()
	defer res.Body.Close()
	for _, c := range res.Cookies() {
		if c.Name == csrfCookieName {
			return token, c
		}
	}
	t.Fatal("CSRF cookie not set")
	return "", nil
}

func TestCSRFMiddlewareAcceptsIssuedToken(t *testing.T) {
	token, cookie := issueToken(t)

	called := false
	handler := CSRFMiddleware(csrfTestKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFMiddlewareRejectsBadTokens(t *testing.T) {
	_, cookie := issueToken(t)

	handler := CSRFMiddleware(csrfTestKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("header and cookie mismatch", func(t *testing.T) {
		other, _ := issueToken(t)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.Header.Set("X-CSRF-Token", other)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("forged signature", func(t *testing.T) {
		forged, forgedCookie := issueToken(t)
		forged = "deadbeef." + forged
		forgedCookie.Value = forged
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.Header.Set("X-CSRF-Token", forged)
		req.AddCookie(forgedCookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCSRFMiddlewareSkipsSafeMethods(t *testing.T) {
	called := false
	handler := CSRFMiddleware(csrfTestKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.True(t, called)
}

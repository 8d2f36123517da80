package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/cgtfolio/backend/src/logger"
)

const csrfCookieName = "_cgtfolio_csrf"

// GetCSRFToken issues a signed double-submit token: the same value travels
// back in the X-CSRF-Token header and the cookie.
func GetCSRFToken(authKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := signedToken(authKey)
		if err != nil {
			logger.L.Error("Failed to generate CSRF token", "error", err)
			http.Error(w, "failed to generate CSRF token", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   false, // behind TLS termination in production
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)
		json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
	}
}

// CSRFMiddleware enforces the double-submit check on mutating requests:
// header and cookie must carry the same validly signed token.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken == "" || err != nil || headerToken != cookie.Value || !verifyToken(authKey, headerToken) {
				logger.L.Warn("CSRF token validation failed", "method", r.Method, "path", r.URL.Path)
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// signedToken returns "<hex hmac>.<nonce>" for a fresh random nonce.
func signedToken(authKey []byte) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(b)
	return sign(authKey, nonce) + "." + nonce, nil
}

func verifyToken(authKey []byte, token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	return hmac.Equal([]byte(parts[0]), []byte(sign(authKey, parts[1])))
}

func sign(authKey []byte, nonce string) string {
	mac := hmac.New(sha256.New, authKey)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

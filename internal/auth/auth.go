// Package auth implements API bearer-token authentication.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyToken is returned when hashing a blank token.
var ErrEmptyToken = errors.New("token is empty")

// HashToken returns the bcrypt hash stored in configuration.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateToken returns a random URL-safe token.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verifier checks bearer tokens against a bcrypt hash.
type Verifier struct {
	hash []byte
}

// NewVerifier returns a verifier for hash, or nil when hash is empty.
func NewVerifier(hash string) *Verifier {
	if hash == "" {
		return nil
	}
	return &Verifier{hash: []byte(hash)}
}

// Verify reports whether token matches the configured hash.
func (v *Verifier) Verify(token string) bool {
	if v == nil {
		return true
	}
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(token)) == nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// Middleware rejects requests without a valid bearer token. A nil verifier
// lets every request through.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Verify(BearerToken(r)) {
			log.Debug().Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
			w.Header().Set("WWW-Authenticate", `Bearer realm="sitelog"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenParam is the query parameter EventSource clients use, since they
// cannot set an Authorization header.
const TokenParam = "token"

// StreamMiddleware is Middleware that also accepts the token as the
// TokenParam query parameter. Use it only on event stream routes.
func (v *Verifier) StreamMiddleware(next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			token = r.URL.Query().Get(TokenParam)
		}
		if !v.Verify(token) {
			log.Debug().Str("path", r.URL.Path).Msg("Rejected unauthenticated stream")
			w.Header().Set("WWW-Authenticate", `Bearer realm="sitelog"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

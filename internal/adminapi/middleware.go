package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// adminClaims is the JWT payload an admin bearer token carries. Unlike
// internal/auth's Claims (which gate a WAMP realm join), these merely
// prove possession of the admin secret; there is no per-realm scoping
// for introspection.
type adminClaims struct {
	jwt.RegisteredClaims
}

// tokenAuth issues and validates admin bearer tokens off a single
// shared secret, the same JWTAuth shape used elsewhere in this codebase.
type tokenAuth struct {
	secretKey []byte
}

func newTokenAuth(secret string) *tokenAuth {
	return &tokenAuth{secretKey: []byte(secret)}
}

func (a *tokenAuth) issue(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := adminClaims{RegisteredClaims: jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secretKey)
}

func (a *tokenAuth) validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secretKey, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}

// authRequired wraps next so every request must carry a valid bearer
// token, unless noAuth is set (local/dev deployments without a
// configured secret).
func authRequired(auth *tokenAuth, noAuth bool, next http.HandlerFunc) http.HandlerFunc {
	if noAuth {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, "authorization header required", http.StatusUnauthorized)
			return
		}
		if err := auth.validate(strings.TrimPrefix(header, "Bearer ")); err != nil {
			writeError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// recovery turns a panic inside next into a 500 instead of crashing the
// admin listener.
func recovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				writeError(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// Package auth implements session acceptance as an external collaborator
// to the router core: it decides whether a HELLO is accepted by
// validating a HELLO details.authextra.token field before WELCOME, the
// same JWTAuth shape used elsewhere in this codebase for bearer tokens,
// repurposed from HTTP requests to HELLO messages.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CHOUAiB/wampcore/internal/router"
)

// Claims is the JWT payload a HELLO's details.authextra.token must
// carry: the realm it authenticates for, and whether the holder may
// join any realm.
type Claims struct {
	Realm   string `json:"realm"`
	AnyRealm bool  `json:"any_realm,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth validates HELLO details against a shared HMAC secret.
type JWTAuth struct {
	secretKey []byte
}

// New creates a JWTAuth validating tokens signed with secretKey.
func New(secretKey string) *JWTAuth {
	return &JWTAuth{secretKey: []byte(secretKey)}
}

// GenerateToken mints a token authorizing its holder to join realm for
// the given lifetime — used by operators to provision clients, not by
// the router itself.
func (j *JWTAuth) GenerateToken(realm string, ttl time.Duration) (string, error) {
	if realm == "" {
		return "", errors.New("auth: realm cannot be empty")
	}
	now := time.Now()
	claims := Claims{
		Realm: realm,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTAuth) validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: token cannot be empty")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid claims")
	}
	return claims, nil
}

// AcceptHook implements router.AcceptHook: it reads
// details["authextra"]["token"] from the HELLO message and validates it
// against realm.
func (j *JWTAuth) AcceptHook() router.AcceptHook {
	return func(realm string, details map[string]interface{}) (bool, string) {
		extra, _ := details["authextra"].(map[string]interface{})
		token, _ := extra["token"].(string)

		claims, err := j.validate(token)
		if err != nil {
			return false, err.Error()
		}
		if !claims.AnyRealm && claims.Realm != realm {
			return false, fmt.Sprintf("token is not authorized for realm %q", realm)
		}
		return true, ""
	}
}

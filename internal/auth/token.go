// Package auth resolves bearer credentials to stable usernames.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token body issued by the account service.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Resolver validates HS256 tokens signed with a shared secret.
type Resolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewResolver(secret string) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Resolve returns the username carried by a valid token.
func (r *Resolver) Resolve(token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}
	var claims Claims
	_, err := r.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Username == "" {
		return "", fmt.Errorf("%w: missing username", ErrInvalidToken)
	}
	return claims.Username, nil
}

// Authenticate reads the credential from the Authorization header or, for
// browser websocket clients that cannot set headers, the token query parameter.
func (r *Resolver) Authenticate(req *http.Request) (string, error) {
	return r.Resolve(TokenFromRequest(req))
}

// Issue signs a token for username. It exists for tooling and tests; the
// account service is the normal issuer.
func (r *Resolver) Issue(userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// TokenFromRequest extracts a bearer credential from req.
func TokenFromRequest(req *http.Request) string {
	if h := req.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return req.URL.Query().Get("token")
}

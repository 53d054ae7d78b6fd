package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResolveRoundTrip(t *testing.T) {
	r := NewResolver("secret")
	token, err := r.Issue("42", "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := r.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "alice" {
		t.Fatalf("username = %q, want alice", got)
	}
}

func TestResolveRejects(t *testing.T) {
	r := NewResolver("secret")
	other := NewResolver("other-secret")
	foreign, _ := other.Issue("1", "mallory", time.Hour)
	expired, _ := r.Issue("1", "bob", -time.Minute)
	anonymous, _ := r.Issue("1", "", time.Hour)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrNoToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"no username", anonymous, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	if got := TokenFromRequest(req); got != "from-query" {
		t.Fatalf("query token = %q", got)
	}
	req.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(req); got != "from-header" {
		t.Fatalf("header token = %q", got)
	}
}

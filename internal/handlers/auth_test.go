package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func newRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func signedToken(t *testing.T, userID, secret string) string {
	t.Helper()
	token, err := issueToken(userID, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestResolveTestHeaderWins(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	req := newRequest(t, "/workouts")
	req.Header.Set("X-Test-User", "override")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "signed", testSecret))

	if got := resolver.Resolve(req); got != "override" {
		t.Errorf("Resolve = %q, want override", got)
	}
}

func TestResolveDevToken(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	req := newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer dev:alice")

	if got := resolver.Resolve(req); got != "alice" {
		t.Errorf("Resolve = %q, want alice", got)
	}
}

func TestResolveVerifiedToken(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	req := newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-42", testSecret))

	if got := resolver.Resolve(req); got != "u-42" {
		t.Errorf("Resolve = %q, want u-42", got)
	}
}

func TestResolveUnverifiedFallback(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	// Signed with the wrong secret: verification fails, the unverified
	// decode still recovers the claim outside production.
	req := newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-42", "other-secret"))

	if got := resolver.Resolve(req); got != "u-42" {
		t.Errorf("Resolve = %q, want u-42", got)
	}
}

func TestResolveHeaderAndQueryFallbacks(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	req := newRequest(t, "/workouts")
	req.Header.Set("X-User-Id", "header-user")
	if got := resolver.Resolve(req); got != "header-user" {
		t.Errorf("header fallback = %q, want header-user", got)
	}

	req = newRequest(t, "/workouts?userId=query-user")
	if got := resolver.Resolve(req); got != "query-user" {
		t.Errorf("query fallback = %q, want query-user", got)
	}
}

func TestResolveProductionDisablesFallbacks(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, true)

	req := newRequest(t, "/workouts?userId=query-user")
	req.Header.Set("X-Test-User", "override")
	req.Header.Set("X-User-Id", "header-user")
	if got := resolver.Resolve(req); got != "" {
		t.Errorf("Resolve = %q, want empty", got)
	}

	req = newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer dev:alice")
	if got := resolver.Resolve(req); got != "" {
		t.Errorf("dev token in production = %q, want empty", got)
	}

	req = newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-42", "other-secret"))
	if got := resolver.Resolve(req); got != "" {
		t.Errorf("unverified token in production = %q, want empty", got)
	}

	// A properly signed token still resolves.
	req = newRequest(t, "/workouts")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-42", testSecret))
	if got := resolver.Resolve(req); got != "u-42" {
		t.Errorf("verified token in production = %q, want u-42", got)
	}
}

func TestRequireIdentityRejectsAnonymous(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, true)

	called := false
	handler := resolver.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(t, "/workouts"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("handler called without identity")
	}
}

func TestRequireIdentityInjectsContext(t *testing.T) {
	resolver := NewIdentityResolver(testSecret, false)

	var got string
	handler := resolver.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identityFromContext(r.Context())
	}))

	req := newRequest(t, "/workouts")
	req.Header.Set("X-Test-User", "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "alice" {
		t.Errorf("identity = %q, want alice", got)
	}
}

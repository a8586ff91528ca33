package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss := NewIssuer("test-key", time.Hour)

	token, err := iss.IssueToken("alice")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	userName, err := iss.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if userName != "alice" {
		t.Fatalf("userName = %q, want alice", userName)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	iss := NewIssuer("test-key", time.Hour)
	token, _ := iss.IssueToken("alice")

	other := NewIssuer("different-key", time.Hour)
	if _, err := other.VerifyToken(token); err != ErrInvalidToken {
		t.Fatalf("VerifyToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	iss := NewIssuer("test-key", -time.Minute)
	token, _ := iss.IssueToken("alice")

	if _, err := iss.VerifyToken(token); err != ErrInvalidToken {
		t.Fatalf("VerifyToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestFromRequestMissingHeader(t *testing.T) {
	iss := NewIssuer("test-key", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := iss.FromRequest(req); err != ErrMissingToken {
		t.Fatalf("FromRequest() error = %v, want ErrMissingToken", err)
	}
}

func TestFromRequestValidBearer(t *testing.T) {
	iss := NewIssuer("test-key", time.Hour)
	token, _ := iss.IssueToken("bob")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userName, err := iss.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if userName != "bob" {
		t.Fatalf("userName = %q, want bob", userName)
	}
}

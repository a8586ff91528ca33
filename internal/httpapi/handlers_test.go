package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/1mb-dev/library-gateway/internal/authn"
	"github.com/1mb-dev/library-gateway/internal/retryqueue"
)

func TestHealthNeedsNoToken(t *testing.T) {
	issuer := authn.NewIssuer("test-key", time.Hour)
	h := &Handlers{Issuer: issuer, Log: zap.NewNop(), Retry: retryqueue.New(zap.NewNop())}
	router := NewRouter(h, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/manage/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestAPIRouteWithoutTokenIsUnauthorized(t *testing.T) {
	issuer := authn.NewIssuer("test-key", time.Hour)
	h := &Handlers{Issuer: issuer, Log: zap.NewNop(), Retry: retryqueue.New(zap.NewNop())}
	router := NewRouter(h, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIssueTokenEndpoint(t *testing.T) {
	issuer := authn.NewIssuer("test-key", time.Hour)
	h := &Handlers{Issuer: issuer, Log: zap.NewNop(), Retry: retryqueue.New(zap.NewNop())}
	router := NewRouter(h, zap.NewNop())

	body, _ := json.Marshal(map[string]string{"userName": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["accessToken"] == "" {
		t.Fatal("expected a non-empty accessToken")
	}
}

func TestPagingValidationRejectsOutOfRangeSize(t *testing.T) {
	if err := validatePaging(0, 0); err == nil {
		t.Fatal("size 0 should be rejected")
	}
	if err := validatePaging(0, 101); err == nil {
		t.Fatal("size 101 should be rejected")
	}
	if err := validatePaging(-1, 10); err == nil {
		t.Fatal("negative page should be rejected")
	}
	if err := validatePaging(0, 10); err != nil {
		t.Fatalf("valid paging rejected: %v", err)
	}
}

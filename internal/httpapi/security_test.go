package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salesledger/backend/internal/domain"
)

func TestRequestsWithoutBearerTokenRejected(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/daily-sales", nil)
	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/daily-sales", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	recorder = httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", recorder.Code)
	}
}

func TestMutatingRequestRequiresCSRFToken(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/daily-sales", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", recorder.Code)
	}
}

func TestCSRFTokenEndpointIssuesValidToken(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	decodeBody(t, recorder, &body)
	if !api.validateCSRFToken(body.CSRFToken) {
		t.Fatal("issued csrf token did not validate")
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	api := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected configured origin, got %q", got)
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/daily-sales", nil)
	recorder = httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, preflight)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	payload := map[string]any{
		"date":       "2025-03-01",
		"totallyNew": true,
	}
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, payload); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWriteRateLimit(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	var limited bool
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		date := base.AddDate(0, 0, i).Format("2006-01-02")
		resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload(date, 100))
		if resp.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected write rate limit to trigger within 40 requests")
	}
}

func TestMethodNotAllowedOnCollection(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	if resp := doRequest(t, api, http.MethodDelete, "/api/v1/daily-sales", admin, nil); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

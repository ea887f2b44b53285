package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func TestTokenMiddleware_Disabled(t *testing.T) {
	m := NewTokenMiddleware("")

	req := httptest.NewRequest("GET", "/api/v1/answer", nil)
	rr := httptest.NewRecorder()

	m.Authenticate(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200 without token check, got %d", rr.Code)
	}
}

func TestTokenMiddleware_ValidToken(t *testing.T) {
	m := NewTokenMiddleware("secret-token")

	req := httptest.NewRequest("GET", "/api/v1/answer", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()

	m.Authenticate(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestTokenMiddleware_MissingToken(t *testing.T) {
	m := NewTokenMiddleware("secret-token")

	req := httptest.NewRequest("GET", "/api/v1/answer", nil)
	rr := httptest.NewRecorder()

	m.Authenticate(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestTokenMiddleware_WrongToken(t *testing.T) {
	m := NewTokenMiddleware("secret-token")

	req := httptest.NewRequest("GET", "/api/v1/answer", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr := httptest.NewRecorder()

	m.Authenticate(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"no scheme", "abc123", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"extra whitespace", "Bearer   abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := extractBearerToken(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	m := NewLoggingMiddleware()

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	m.Handler(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	m := NewLoggingMiddleware()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	m.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	m := NewRecoveryMiddleware()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	m.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

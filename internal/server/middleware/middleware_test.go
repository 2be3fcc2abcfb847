package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type countingLimiter struct {
	seen  map[string]int
	limit int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = make(map[string]int)
	}
	l.seen[key]++
	return l.seen[key] <= limit, nil
}

func (l *countingLimiter) Wait(context.Context, string) error { return nil }

func TestAuth(t *testing.T) {
	h := Auth("secret")(okHandler)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer secret", http.StatusOK},
		{"api key header", "X-API-Key", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: code=%d want=%d", tc.name, rec.Code, tc.want)
		}
	}

	rec := httptest.NewRecorder()
	Auth("")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled auth: code=%d want=200", rec.Code)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := &countingLimiter{}
	h := RateLimit(limiter, "record_bet", 2, 30*time.Second)(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/record_bet", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	send("1.1.1.1")
	send("1.1.1.1")
	rec := send("1.1.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("code=%d want=429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("retry-after=%q want=30", got)
	}
	if rec := send("2.2.2.2"); rec.Code != http.StatusOK {
		t.Fatalf("other client: code=%d want=200", rec.Code)
	}
	if limiter.seen["record_bet:1.1.1.1"] != 3 {
		t.Fatalf("seen=%v", limiter.seen)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(&countingLimiter{err: errors.New("redis down")}, "record_bet", 1, time.Second)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/record_bet", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want=200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(CORSConfig{
		Origins: []string{"https://bet.example"},
		Methods: map[string][]string{
			"/api/status":     {http.MethodGet},
			"/api/record_bet": {http.MethodPost},
			"/api/sync":       {http.MethodPost, http.MethodGet},
		},
	})(okHandler)

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	cases := []struct {
		path        string
		wantMethods string
	}{
		{"/api/status", "GET, OPTIONS"},
		{"/api/record_bet", "OPTIONS, POST"},
		{"/api/sync", "GET, OPTIONS, POST"},
	}
	for _, tc := range cases {
		rec := preflight(tc.path, "https://bet.example")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: code=%d want=204", tc.path, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://bet.example" {
			t.Fatalf("%s: allow-origin=%q", tc.path, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != tc.wantMethods {
			t.Fatalf("%s: allow-methods=%q want=%q", tc.path, got, tc.wantMethods)
		}
	}

	if rec := preflight("/api/unknown", "https://bet.example"); rec.Code != http.StatusNotFound {
		t.Fatalf("unrouted preflight: code=%d want=404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin=%q want empty", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want=200", rec.Code)
	}
}

func TestLoggingCapturesStatus(t *testing.T) {
	h := Logging(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code=%d want=418", rec.Code)
	}
}

package server

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/server/handler"
	"github.com/alanyoungcy/majorbet/internal/service"
)

type stubContests struct{ syncs int }

func (s *stubContests) Status(context.Context) (domain.ContestStatus, error) {
	return domain.ContestStatus{Code: domain.StatusOpen, TotalPoolWei: big.NewInt(1)}, nil
}
func (s *stubContests) Teams(context.Context) ([]domain.Team, error) { return nil, nil }
func (s *stubContests) Sync(context.Context) (service.SyncResult, error) {
	s.syncs++
	return service.SyncResult{}, nil
}

type stubStats struct{}

func (stubStats) Stats(context.Context) (domain.Stats, error) { return domain.Stats{}, nil }
func (stubStats) Leaderboard(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}
func (stubStats) RecordBet(context.Context, service.RecordBetInput) (domain.BetRecord, error) {
	return domain.BetRecord{ID: "b"}, nil
}
func (stubStats) BetsByUser(context.Context, string, domain.ListOpts) ([]domain.BetRecord, error) {
	return nil, nil
}

type stubAudit struct{}

func (stubAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type denyAfter struct{ n int }

func (d *denyAfter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	d.n--
	return d.n >= 0, nil
}
func (d *denyAfter) Wait(context.Context, string) error { return nil }

func newTestHandler(contests *stubContests, limiter domain.RateLimiter) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Handlers{
		Health:  handler.NewHealthHandler(nil, logger),
		Contest: handler.NewContestHandler(contests, logger),
		Stats:   handler.NewStatsHandler(stubStats{}, nil, logger),
		Audit:   handler.NewAuditHandler(stubAudit{}, logger),
	}
	cfg := Config{APIKey: "k", RecordBetLimit: 1, RecordBetWindow: time.Minute}
	return NewHandler(cfg, h, limiter, nil, logger)
}

func do(h http.Handler, method, path string, header ...string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(&stubContests{}, nil)
	for _, path := range []string{"/api/health", "/api/status", "/api/teams", "/api/stats", "/api/leaderboard"} {
		if code := do(h, http.MethodGet, path); code != http.StatusOK {
			t.Fatalf("%s: code=%d want=200", path, code)
		}
	}
	if code := do(h, http.MethodGet, "/api/price"); code != http.StatusNotFound {
		t.Fatalf("price without handler: code=%d want=404", code)
	}
	if code := do(h, http.MethodDelete, "/api/status"); code != http.StatusMethodNotAllowed {
		t.Fatalf("code=%d want=405", code)
	}
}

func TestSyncRequiresKey(t *testing.T) {
	contests := &stubContests{}
	h := newTestHandler(contests, nil)
	if code := do(h, http.MethodPost, "/api/sync"); code != http.StatusUnauthorized {
		t.Fatalf("code=%d want=401", code)
	}
	if code := do(h, http.MethodGet, "/api/sync", "X-API-Key", "k"); code != http.StatusOK {
		t.Fatalf("code=%d want=200", code)
	}
	if contests.syncs != 1 {
		t.Fatalf("syncs=%d want=1", contests.syncs)
	}
}

func TestAuditRequiresKey(t *testing.T) {
	h := newTestHandler(&stubContests{}, nil)
	if code := do(h, http.MethodGet, "/api/audit"); code != http.StatusUnauthorized {
		t.Fatalf("code=%d want=401", code)
	}
	if code := do(h, http.MethodGet, "/api/audit", "Authorization", "Bearer k"); code != http.StatusOK {
		t.Fatalf("code=%d want=200", code)
	}
}

func TestRecordBetRateLimited(t *testing.T) {
	h := newTestHandler(&stubContests{}, &denyAfter{n: 1})
	if code := do(h, http.MethodPost, "/api/record_bet"); code != http.StatusCreated {
		t.Fatalf("first: code=%d want=201", code)
	}
	if code := do(h, http.MethodPost, "/api/record_bet"); code != http.StatusTooManyRequests {
		t.Fatalf("second: code=%d want=429", code)
	}
}

func TestPreflightAdvertisesRoutedMethods(t *testing.T) {
	h := newTestHandler(&stubContests{}, nil)
	cases := map[string]string{
		"/api/status":     "GET, OPTIONS",
		"/api/record_bet": "OPTIONS, POST",
		"/api/sync":       "GET, OPTIONS, POST",
		"/api/audit":      "GET, OPTIONS",
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://bet.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: code=%d want=204", path, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != want {
			t.Fatalf("%s: allow-methods=%q want=%q", path, got, want)
		}
	}
}

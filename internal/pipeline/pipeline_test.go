package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/service"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCronNext(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 7, 30, 0, time.UTC)
	cases := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2025, 1, 1, 10, 8, 0, 0, time.UTC)},
		{"0 * * * *", time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC)},
		{"30 3 * * *", time.Date(2025, 1, 2, 3, 30, 0, 0, time.UTC)},
		{"0 9-17/4 * * *", time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)},
		{"0 0 1 2 *", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"5,10 10 * * *", time.Date(2025, 1, 1, 10, 10, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		sched, err := parseCron(tc.expr)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.expr, err)
		}
		got, err := sched.next(base)
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("expr=%q got=%v want=%v err=%v", tc.expr, got, tc.want, err)
		}
	}
}

func TestCronRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *"} {
		if err := ValidateCron(expr); err == nil {
			t.Fatalf("expr=%q want error", expr)
		}
	}
}

type scriptedSyncer struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedSyncer) Sync(context.Context) (service.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return service.SyncResult{}, nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return service.SyncResult{Changed: true}, err
}

func TestSyncLoopTreatsLockHeldAsSkip(t *testing.T) {
	s := &scriptedSyncer{errs: []error{fmt.Errorf("redis: lock contest_sync: %w", domain.ErrLockHeld)}}
	l := NewSyncLoop(s, testLogger())
	if err := l.RunOnce(context.Background()); err != nil {
		t.Fatalf("err=%v want nil", err)
	}

	s.errs = []error{errors.New("rpc down")}
	if err := l.RunOnce(context.Background()); err == nil {
		t.Fatal("expected sync error")
	}
}

func TestSyncLoopRunsImmediatelyAndStops(t *testing.T) {
	s := &scriptedSyncer{}
	l := NewSyncLoop(s, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.RunLoop(ctx, time.Hour) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		calls := s.calls
		s.mu.Unlock()
		if calls > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sync never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

type fakeSnapshots struct{ at []time.Time }

func (f *fakeSnapshots) Archive(_ context.Context, now time.Time) (string, error) {
	f.at = append(f.at, now)
	return "archive/x.json", nil
}

func TestArchiverRun(t *testing.T) {
	snaps := &fakeSnapshots{}
	a := NewArchiver(snaps, testLogger())
	fixed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snaps.at) != 1 || !snaps.at[0].Equal(fixed) {
		t.Fatalf("archived at %v", snaps.at)
	}
}

func TestOrchestratorStopsCleanly(t *testing.T) {
	o := NewOrchestrator(NewSyncLoop(&scriptedSyncer{}, testLogger()), nil, nil, time.Hour, time.Hour, "", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("err=%v want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop")
	}
}

package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/majorbet/internal/config"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNeedsStorage(t *testing.T) {
	cases := map[string]bool{"server": true, "sync": true, "watch": false, "bet": false}
	for mode, want := range cases {
		if got := needsStorage(mode); got != want {
			t.Fatalf("needsStorage(%q)=%v want=%v", mode, got, want)
		}
	}
}

func TestWireWatchModeWithoutChain(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "watch"

	deps, cleanup, err := Wire(context.Background(), &cfg, testLogger())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer cleanup()

	if deps.Ledger != nil || deps.ContestStore != nil || deps.SignalBus != nil {
		t.Fatalf("watch mode without chain should wire nothing remote: %+v", deps)
	}
	if deps.Notifier == nil || deps.Notifier.Enabled() {
		t.Fatal("notifier should exist and be disabled without senders")
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	a := New(&cfg, testLogger())
	defer a.Close()
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected unsupported mode error")
	}
}

func TestPingFunc(t *testing.T) {
	called := false
	p := pingFunc(func(context.Context) error { called = true; return nil })
	if err := p.Ping(context.Background()); err != nil || !called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

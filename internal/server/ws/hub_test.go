package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/gorilla/websocket"
)

type memBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
	wg   sync.WaitGroup
}

func newMemBus() *memBus {
	b := &memBus{subs: make(map[string]chan []byte)}
	b.wg.Add(len(channelTypes))
	return b
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch := b.subs[channel]
	b.mu.Unlock()
	if ch != nil {
		ch <- payload
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[channel] = ch
	b.mu.Unlock()
	b.wg.Done()
	return ch, nil
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.TextMessage {
		t.Fatalf("frame type=%d want=text", typ)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestHubRelaysContestEvents(t *testing.T) {
	bus := newMemBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "Server"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	bus.wg.Wait()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := readEnvelope(t, conn)
	if hello.Type != "hello" || !strings.Contains(string(hello.Payload), `"mode":"server"`) {
		t.Fatalf("hello=%s %s", hello.Type, hello.Payload)
	}

	// Wait until the hub has registered the client before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_ = bus.Publish(ctx, domain.ChannelStatus, []byte(`{"event":"status_changed","status":1}`))
	env := readEnvelope(t, conn)
	if env.Type != "status" || string(env.Payload) != `{"event":"status_changed","status":1}` {
		t.Fatalf("env=%s %s", env.Type, env.Payload)
	}

	_ = bus.Publish(ctx, domain.ChannelBets, []byte("not json"))
	env = readEnvelope(t, conn)
	if env.Type != "bet" || string(env.Payload) != `"not json"` {
		t.Fatalf("env=%s %s", env.Type, env.Payload)
	}
}

func TestUnsubscribeFiltersType(t *testing.T) {
	c := &client{subs: map[string]bool{"status": true, "bet": true}}
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"bet"}})
	if c.isSubscribed("bet") || !c.isSubscribed("status") {
		t.Fatalf("subs=%v", c.subs)
	}
}

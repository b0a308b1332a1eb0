package hud

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubStreamsSnapshots(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Publish(catacombs.RunSnapshot{Floor: "F1"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	// A new client gets the last snapshot right away.
	typ, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected a text message, got %v", typ)
	}
	var snap catacombs.RunSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil || snap.Floor != "F1" {
		t.Fatalf("unexpected first message %s (%v)", raw, err)
	}

	waitFor(t, func() bool { return hub.Len() == 1 })
	hub.Broadcast([]byte(`{"floor":"F2"}`))
	_, raw, err = conn.Read(ctx)
	if err != nil || string(raw) != `{"floor":"F2"}` {
		t.Fatalf("unexpected broadcast %s (%v)", raw, err)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return hub.Len() == 0 })
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.Broadcast([]byte("x"))
	if hub.Len() != 0 {
		t.Fatalf("expected no clients")
	}
}

// Package hud streams run snapshots to browser overlays over WebSocket.
package hud

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"github.com/oriumgames/catacombs"
)

// WriteTimeout bounds a single write to one client.
const WriteTimeout = 3 * time.Second

// Hub keeps the connected clients and the last published snapshot.
type Hub struct {
	mu      sync.Mutex
	clients mapset.Set[*websocket.Conn]
	last    []byte
	log     logrus.FieldLogger
}

// NewHub returns a hub with no clients.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{clients: mapset.New[*websocket.Conn](), log: log}
}

// Add registers conn and sends it the last snapshot, if any.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients.Put(conn)
	if h.last != nil {
		h.write(conn, h.last)
	}
}

// Remove forgets conn.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients.Remove(conn)
	h.mu.Unlock()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients.Size()
}

// Broadcast sends message to every client. Clients failing to receive it
// within WriteTimeout are closed and removed.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = message
	var failed []*websocket.Conn
	h.clients.Each(func(conn *websocket.Conn) {
		if !h.write(conn, message) {
			failed = append(failed, conn)
		}
	})
	for _, conn := range failed {
		h.clients.Remove(conn)
	}
}

// Publish encodes snap and broadcasts it. It matches the Service snapshot
// listener signature.
func (h *Hub) Publish(snap catacombs.RunSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		h.log.WithError(err).Error("hud: failed to encode snapshot")
		return
	}
	h.Broadcast(raw)
}

func (h *Hub) write(conn *websocket.Conn, message []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
	err := conn.Write(ctx, websocket.MessageText, message)
	cancel()
	if err != nil {
		h.log.WithError(err).Debug("hud: dropping client")
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return false
	}
	return true
}

// Handler accepts WebSocket clients on any path and keeps them until they
// disconnect. Clients are not expected to send anything.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			h.log.WithError(err).Debug("hud: accept failed")
			return
		}
		h.Add(conn)
		defer h.Remove(conn)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	})
}

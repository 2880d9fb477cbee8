// Package api serves a live WebSocket feed of one coordinator run's
// lifecycle events, for the demo CLI's `ignite serve` command.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/ignition/signal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// FeedMessage is one event broadcast to every connected client.
type FeedMessage struct {
	Type string `json:"type"` // signal_started, signal_completed, global_timeout, coordinator_completed
	Time string `json:"time"`
	Data any     `json:"data,omitempty"`
}

// Feed is a broadcast hub: it implements event.Listener by fanning every
// lifecycle event out to all currently-connected WebSocket clients.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewFeed constructs an empty Feed ready to accept connections.
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection to receive every subsequent broadcast.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("feed: websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256), done: make(chan struct{})}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go f.writePump(c)
	go f.readPump(c)
}

func (f *Feed) readPump(c *client) {
	defer f.remove(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) remove(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.done)
	}
}

func (f *Feed) broadcast(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		f.logger.Error("feed: marshal failed", "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			f.logger.Warn("feed: client send buffer full, dropping message")
		}
	}
}

// SignalStarted implements event.Listener.
func (f *Feed) SignalStarted(name string, at time.Duration) {
	f.broadcast(FeedMessage{Type: "signal_started", Time: time.Now().Format(time.RFC3339Nano), Data: map[string]any{
		"name": name, "atMs": at.Milliseconds(),
	}})
}

// SignalCompleted implements event.Listener.
func (f *Feed) SignalCompleted(result signal.Result) {
	f.broadcast(FeedMessage{Type: "signal_completed", Time: time.Now().Format(time.RFC3339Nano), Data: result})
}

// GlobalTimeoutReached implements event.Listener.
func (f *Feed) GlobalTimeoutReached(elapsed time.Duration) {
	f.broadcast(FeedMessage{Type: "global_timeout", Time: time.Now().Format(time.RFC3339Nano), Data: map[string]any{
		"elapsedMs": elapsed.Milliseconds(),
	}})
}

// CoordinatorCompleted implements event.Listener.
func (f *Feed) CoordinatorCompleted(state string) {
	f.broadcast(FeedMessage{Type: "coordinator_completed", Time: time.Now().Format(time.RFC3339Nano), Data: map[string]any{
		"state": state,
	}})
}

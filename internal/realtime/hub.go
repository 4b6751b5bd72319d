// Package realtime pushes session snapshots, narration commands and audio
// cues to connected clients over WebSocket.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-deck/internal/session"
)

// Server message types.
const (
	TypeSnapshot  = "snapshot"
	TypeNarration = "narration"
	TypeCue       = "cue"
)

// ClientNarrationEnded is sent by the client when speech finishes on its own.
const ClientNarrationEnded = "narration_ended"

// Narration actions.
const (
	NarrationSpeak  = "speak"
	NarrationPause  = "pause"
	NarrationResume = "resume"
	NarrationCancel = "cancel"
)

// Message is a server-to-client event.
type Message struct {
	Type      string            `json:"type"`
	Snapshot  *session.Snapshot `json:"snapshot,omitempty"`
	Narration *NarrationCommand `json:"narration,omitempty"`
	Cue       *Cue              `json:"cue,omitempty"`
}

// NarrationCommand tells the client's speech synthesiser what to do.
type NarrationCommand struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// ClientMessage is a client-to-server event.
type ClientMessage struct {
	Type string `json:"type"`
}

// MessageHandler handles messages read from a client connection.
type MessageHandler func(ctx context.Context, msg ClientMessage)

type client struct {
	outbound chan Message
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans messages out to every connection subscribed to a session.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*client]bool

	bufferSize   int
	pingInterval time.Duration
	writeTimeout time.Duration
	accept       *websocket.AcceptOptions
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) { h.pingInterval = d }
}

// WithOriginPatterns allows cross-origin WebSocket connections from the
// given host patterns.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.accept.OriginPatterns = patterns }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subscriptions: make(map[string]map[*client]bool),
		bufferSize:    16,
		pingInterval:  30 * time.Second,
		writeTimeout:  5 * time.Second,
		accept:        &websocket.AcceptOptions{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) subscribe(id string) *client {
	c := &client{
		outbound: make(chan Message, h.bufferSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.subscriptions[id]
	if !ok {
		clients = make(map[*client]bool)
		h.subscriptions[id] = clients
	}
	clients[c] = true
	return c
}

func (h *Hub) unsubscribe(id string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subscriptions[id]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscriptions, id)
		}
	}
	c.close()
}

// Subscribers returns the number of connections for a session.
func (h *Hub) Subscribers(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[id])
}

// Broadcast queues msg for every connection of the session. Slow clients
// lose messages rather than block the sender.
func (h *Hub) Broadcast(id string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.subscriptions[id] {
		select {
		case c.outbound <- msg:
		default:
			slog.Warn("dropping realtime message; outbound buffer full",
				"session_id", id,
				"type", msg.Type,
			)
		}
	}
}

// Publish sends a snapshot. It satisfies session.Publisher.
func (h *Hub) Publish(id string, snap session.Snapshot) {
	h.Broadcast(id, Message{Type: TypeSnapshot, Snapshot: &snap})
}

// CloseSession disconnects every client of a session.
func (h *Hub) CloseSession(id string) {
	h.mu.Lock()
	clients := h.subscriptions[id]
	delete(h.subscriptions, id)
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Capabilities returns narration and cue capabilities that forward to the
// session's clients.
func (h *Hub) Capabilities(id string) session.Capabilities {
	return session.Capabilities{
		Narrator: narrator{hub: h, id: id},
		Cues:     cuePlayer{hub: h, id: id},
	}
}

// Serve upgrades the request, sends initial and then streams messages for
// the session until either side goes away. Messages from the client are
// passed to handle.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, id string, initial Message, handle MessageHandler) error {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	c := h.subscribe(id)
	defer h.unsubscribe(id, c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	slog.Debug("realtime client connected", "session_id", id)

	go func() {
		defer cancel()
		for {
			var msg ClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
					slog.Debug("realtime read failed", "session_id", id, "error", err)
				}
				return
			}
			if handle != nil {
				handle(ctx, msg)
			}
		}
	}()

	if err := h.write(ctx, conn, initial); err != nil {
		return err
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case <-c.done:
			conn.Close(websocket.StatusGoingAway, "session ended")
			return nil
		case msg := <-c.outbound:
			if err := h.write(ctx, conn, msg); err != nil {
				return err
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

type narrator struct {
	hub *Hub
	id  string
}

func (n narrator) send(action, text string) {
	n.hub.Broadcast(n.id, Message{Type: TypeNarration, Narration: &NarrationCommand{Action: action, Text: text}})
}

func (n narrator) Speak(text string) { n.send(NarrationSpeak, text) }
func (n narrator) Pause()            { n.send(NarrationPause, "") }
func (n narrator) Resume()           { n.send(NarrationResume, "") }
func (n narrator) Cancel()           { n.send(NarrationCancel, "") }

type cuePlayer struct {
	hub *Hub
	id  string
}

func (p cuePlayer) play(cue Cue) {
	p.hub.Broadcast(p.id, Message{Type: TypeCue, Cue: &cue})
}

func (p cuePlayer) PlaySuccessCue() { p.play(SuccessCue) }
func (p cuePlayer) PlayFailureCue() { p.play(FailureCue) }

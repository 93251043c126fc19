// Package hub routes agent events to the connection session bound to a
// session id, with a bounded per-session replay history.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// HistorySize is the fixed capacity of the per-session replay buffer.
const HistorySize = 50

// CloseReasonReplaced is passed to a transport closed because a new
// connection arrived under the same session id.
const CloseReasonReplaced = "replaced"

// Transport is a live duplex connection to one client.
type Transport interface {
	Send(data []byte) error
	Close(reason string) error
}

type session struct {
	id      string
	userID  string
	history *ring

	// sendMu serializes delivery for this session: a reconnect replay holds
	// it end to end, so a concurrent Send from a run goroutine cannot land
	// between replayed events. Always acquired before Hub.mu.
	sendMu    sync.Mutex
	transport Transport
}

// Hub is the shared session registry. Connect, Send and Disconnect are safe
// to call concurrently from independent run goroutines.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{sessions: make(map[string]*session)}
}

// session returns the entry for sessionID, creating it on first use.
func (h *Hub) session(sessionID string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		sess = &session{id: sessionID, history: newRing(HistorySize)}
		h.sessions[sessionID] = sess
	}
	return sess
}

// Connect registers a transport for sessionID. If the session already has a
// live transport it is closed with the "replaced" reason before the new one
// is activated, so events are never delivered twice. A connected event is
// sent immediately, followed by a replay of the buffered history; the
// session's delivery lock is held throughout, so a Send racing the replay
// waits and its event arrives after the replayed ones.
func (h *Hub) Connect(sessionID, userID string, t Transport) {
	sess := h.session(sessionID)

	sess.sendMu.Lock()
	defer sess.sendMu.Unlock()

	h.mu.Lock()
	old := sess.transport
	sess.transport = t
	sess.userID = userID
	replay := sess.history.items()
	h.mu.Unlock()

	if old != nil {
		if err := old.Close(CloseReasonReplaced); err != nil {
			log.Printf("WARN: failed to close replaced transport for session %s: %v", sessionID, err)
		}
	}

	connected := domain.AgentEvent{
		Type:    domain.EventTypeConnected,
		Source:  "hub",
		Message: "session connected",
		Data:    map[string]any{"session_id": sessionID, "replayed": len(replay)},
		Ts:      time.Now().UnixMilli(),
	}
	if !h.deliver(sessionID, t, connected) {
		return
	}
	for _, ev := range replay {
		if !h.deliver(sessionID, t, ev) {
			return
		}
	}
}

// Send delivers an event to the session bound to sessionID. The event is
// always appended to the session's history so a reconnecting client can
// recover it; delivery itself is best-effort. On transport failure the
// transport is torn down as a side effect and the caller is unaffected.
func (h *Hub) Send(sessionID string, ev domain.AgentEvent) {
	sess := h.session(sessionID)

	sess.sendMu.Lock()
	defer sess.sendMu.Unlock()

	h.mu.Lock()
	sess.history.push(ev)
	t := sess.transport
	h.mu.Unlock()

	if t == nil {
		return
	}
	h.deliver(sessionID, t, ev)
}

// Broadcast sends an event to every session with a live transport. Used only
// for process-wide lifecycle events; nothing is buffered.
func (h *Hub) Broadcast(ev domain.AgentEvent) {
	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		targets = append(targets, sess)
	}
	h.mu.Unlock()

	for _, sess := range targets {
		sess.sendMu.Lock()
		h.mu.Lock()
		t := sess.transport
		h.mu.Unlock()
		if t != nil {
			h.deliver(sess.id, t, ev)
		}
		sess.sendMu.Unlock()
	}
}

// Disconnect removes the transport mapping for sessionID but retains the
// history buffer for a possible reconnect. If t is non-nil the session is
// only torn down when t is still the active transport, so a stale read pump
// cannot disconnect its replacement.
func (h *Hub) Disconnect(sessionID string, t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if t != nil && sess.transport != t {
		return
	}
	sess.transport = nil
}

// UserFor returns the user bound to sessionID, if any.
func (h *Hub) UserFor(sessionID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess, ok := h.sessions[sessionID]; ok {
		return sess.userID
	}
	return ""
}

// HasTransport reports whether sessionID currently has a live transport.
func (h *Hub) HasTransport(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	return ok && sess.transport != nil
}

// deliver marshals and sends one event; on failure the session's transport
// is dropped. Returns false when delivery failed.
func (h *Hub) deliver(sessionID string, t Transport, ev domain.AgentEvent) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ERROR: failed to marshal event for session %s: %v", sessionID, err)
		return false
	}
	if err := t.Send(data); err != nil {
		log.Printf("WARN: send to session %s failed, dropping transport: %v", sessionID, err)
		h.Disconnect(sessionID, t)
		if cerr := t.Close("send failed"); cerr != nil {
			log.Printf("WARN: failed to close transport for session %s: %v", sessionID, cerr)
		}
		return false
	}
	return true
}

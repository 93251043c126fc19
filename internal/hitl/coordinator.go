// Package hitl synchronizes pipeline steps with remote human answers.
//
// A step opens a request and blocks on its outcome; the answer arrives from
// a different actor (the inbound WebSocket handler). The result slot is a
// buffered channel of size one guarded by the coordinator's mutex, so
// exactly one resolution wins no matter which side acts first, and a waiter
// is never left suspended: timeout and run cancellation both force-resolve.
package hitl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// NotifyFunc delivers a hitl_request event to the session that must answer.
type NotifyFunc func(sessionID string, ev domain.AgentEvent)

type pending struct {
	req      domain.HITLRequest
	slot     chan domain.HITLOutcome
	resolved bool
}

// Coordinator is the pending-request registry.
type Coordinator struct {
	mu     sync.Mutex
	byID   map[string]*pending
	byRun  map[string]string
	notify NotifyFunc
}

// New creates a Coordinator. notify may be nil in tests.
func New(notify NotifyFunc) *Coordinator {
	return &Coordinator{
		byID:   make(map[string]*pending),
		byRun:  make(map[string]string),
		notify: notify,
	}
}

// Open registers a request, emits the hitl_request event carrying its id and
// blocks until Resolve is called with a matching id, the timeout elapses, or
// ctx is cancelled. Timeout yields the NO_ANSWER sentinel, cancellation the
// CANCELLED sentinel; neither is an error. A second Open for a run whose
// request is still pending is a caller error.
func (c *Coordinator) Open(ctx context.Context, runID, sessionID, question string, timeout time.Duration, kind domain.HITLKind) (domain.HITLOutcome, error) {
	req := domain.HITLRequest{
		ID:        "hitl_" + uuid.New().String()[:8],
		RunID:     runID,
		SessionID: sessionID,
		Question:  question,
		Kind:      kind,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	if prev, ok := c.byRun[runID]; ok {
		c.mu.Unlock()
		return domain.HITLOutcome{}, fmt.Errorf("run %s already has pending request %s", runID, prev)
	}
	p := &pending{req: req, slot: make(chan domain.HITLOutcome, 1)}
	c.byID[req.ID] = p
	c.byRun[runID] = req.ID
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(sessionID, domain.AgentEvent{
			Type:    domain.EventTypeHITLRequest,
			Source:  "hitl",
			Message: question,
			Data: map[string]any{
				"id":          req.ID,
				"kind":        string(kind),
				"deadline_ts": req.CreatedAt.Add(timeout).UnixMilli(),
			},
			Ts: time.Now().UnixMilli(),
		})
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var out domain.HITLOutcome
	select {
	case out = <-p.slot:
	case <-timer.C:
		c.fill(req.ID, domain.HITLOutcome{Status: domain.HITLOutcomeNoAnswer})
		// A racing Resolve may have won; take whatever is in the slot.
		out = <-p.slot
	case <-ctx.Done():
		c.fill(req.ID, domain.HITLOutcome{Status: domain.HITLOutcomeCancelled})
		out = <-p.slot
	}

	c.mu.Lock()
	delete(c.byID, req.ID)
	delete(c.byRun, runID)
	c.mu.Unlock()
	return out, nil
}

// Resolve completes the request with the given answer. Resolving an unknown
// id, or an id whose slot is already filled, is a no-op returning false.
func (c *Coordinator) Resolve(id, answer string) bool {
	return c.fill(id, domain.HITLOutcome{Answer: answer, Status: domain.HITLOutcomeAnswered})
}

// CancelRun force-resolves the run's pending request, if any, with the
// cancelled sentinel so no step stays suspended after its run is stopped.
func (c *Coordinator) CancelRun(runID string) {
	c.mu.Lock()
	id, ok := c.byRun[runID]
	c.mu.Unlock()
	if ok {
		c.fill(id, domain.HITLOutcome{Status: domain.HITLOutcomeCancelled})
	}
}

// Pending returns the pending request id for a run, or "".
func (c *Coordinator) Pending(runID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byRun[runID]
}

// fill assigns the slot exactly once.
func (c *Coordinator) fill(id string, out domain.HITLOutcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[id]
	if !ok || p.resolved {
		return false
	}
	p.resolved = true
	p.slot <- out
	return true
}

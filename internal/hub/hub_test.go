package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// fakeTransport records sends and close reasons.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []domain.AgentEvent
	closed  bool
	reason  string
	sendErr error
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	var ev domain.AgentEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeTransport) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reason = reason
	return nil
}

func (f *fakeTransport) events() []domain.AgentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AgentEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func event(msg string) domain.AgentEvent {
	return domain.AgentEvent{Type: domain.EventTypeStepCompleted, Source: "test", Message: msg}
}

func TestSendBuffersWithoutTransport(t *testing.T) {
	h := New()

	h.Send("s1", event("one"))
	h.Send("s1", event("two"))

	tr := &fakeTransport{}
	h.Connect("s1", "u1", tr)

	got := tr.events()
	if len(got) != 3 {
		t.Fatalf("expected connected + 2 replayed events, got %d", len(got))
	}
	if got[0].Type != domain.EventTypeConnected {
		t.Fatalf("expected connected first, got %s", got[0].Type)
	}
	if got[1].Message != "one" || got[2].Message != "two" {
		t.Fatalf("replay out of order: %+v", got[1:])
	}
}

func TestReplayCappedAtHistorySize(t *testing.T) {
	h := New()

	for i := 0; i < HistorySize+20; i++ {
		h.Send("s1", event(fmt.Sprintf("ev%d", i)))
	}

	tr := &fakeTransport{}
	h.Connect("s1", "u1", tr)

	got := tr.events()
	if len(got) != HistorySize+1 {
		t.Fatalf("expected connected + %d replayed, got %d", HistorySize, len(got))
	}
	// Oldest retained event is the 21st produced.
	if got[1].Message != "ev20" {
		t.Fatalf("expected oldest retained ev20, got %s", got[1].Message)
	}
	if got[len(got)-1].Message != fmt.Sprintf("ev%d", HistorySize+19) {
		t.Fatalf("unexpected newest event: %s", got[len(got)-1].Message)
	}
}

// stallTransport blocks its first send until released, holding a reconnect
// replay open so the test can race a live send against it.
type stallTransport struct {
	fakeTransport
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *stallTransport) Send(data []byte) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.fakeTransport.Send(data)
}

func TestSendDuringReplayArrivesAfterReplay(t *testing.T) {
	h := New()
	for i := 0; i < 10; i++ {
		h.Send("s1", event(fmt.Sprintf("e%d", i)))
	}

	tr := &stallTransport{started: make(chan struct{}), release: make(chan struct{})}
	connected := make(chan struct{})
	go func() {
		h.Connect("s1", "u1", tr)
		close(connected)
	}()
	<-tr.started

	// The replay is stalled mid-flight; a live send now must not overtake
	// the buffered events.
	sent := make(chan struct{})
	go func() {
		h.Send("s1", event("live"))
		close(sent)
	}()
	time.Sleep(20 * time.Millisecond)
	close(tr.release)

	<-connected
	<-sent

	got := tr.events()
	if len(got) != 12 {
		t.Fatalf("expected connected + 10 replayed + live, got %d", len(got))
	}
	if got[0].Type != domain.EventTypeConnected {
		t.Fatalf("expected connected first, got %s", got[0].Type)
	}
	for i := 0; i < 10; i++ {
		if got[i+1].Message != fmt.Sprintf("e%d", i) {
			t.Fatalf("replay out of order at %d: %s", i, got[i+1].Message)
		}
	}
	if got[11].Message != "live" {
		t.Fatalf("expected live event last, got %s", got[11].Message)
	}
}

func TestConnectReplacesOldTransport(t *testing.T) {
	h := New()

	old := &fakeTransport{}
	h.Connect("s1", "u1", old)

	replacement := &fakeTransport{}
	h.Connect("s1", "u1", replacement)

	if !old.closed {
		t.Fatal("expected old transport to be closed")
	}
	if old.reason != CloseReasonReplaced {
		t.Fatalf("expected close reason %q, got %q", CloseReasonReplaced, old.reason)
	}

	h.Send("s1", event("after"))
	oldCount := len(old.events())
	if got := replacement.events(); got[len(got)-1].Message != "after" {
		t.Fatal("expected replacement to receive the event")
	}
	if len(old.events()) != oldCount {
		t.Fatal("old transport must not receive events after replacement")
	}
}

func TestSendFailureTearsDownTransport(t *testing.T) {
	h := New()

	tr := &fakeTransport{sendErr: errors.New("broken pipe")}
	h.Connect("s1", "u1", tr)

	// Delivery fails; the event still lands in history and the caller is
	// unaffected.
	h.Send("s1", event("lost"))

	if !tr.closed {
		t.Fatal("expected failing transport to be closed")
	}
	if h.HasTransport("s1") {
		t.Fatal("expected transport mapping to be dropped")
	}

	// A reconnect replays the event the dead transport missed.
	fresh := &fakeTransport{}
	h.Connect("s1", "u1", fresh)
	got := fresh.events()
	if got[len(got)-1].Message != "lost" {
		t.Fatalf("expected replay of buffered event, got %+v", got)
	}
}

func TestDisconnectIgnoresStaleTransport(t *testing.T) {
	h := New()

	old := &fakeTransport{}
	h.Connect("s1", "u1", old)
	replacement := &fakeTransport{}
	h.Connect("s1", "u1", replacement)

	// The old read pump disconnecting must not tear down the replacement.
	h.Disconnect("s1", old)
	if !h.HasTransport("s1") {
		t.Fatal("stale disconnect removed the live transport")
	}

	h.Disconnect("s1", replacement)
	if h.HasTransport("s1") {
		t.Fatal("expected transport to be removed")
	}
}

func TestDisconnectKeepsHistory(t *testing.T) {
	h := New()

	tr := &fakeTransport{}
	h.Connect("s1", "u1", tr)
	h.Send("s1", event("kept"))
	h.Disconnect("s1", tr)

	h.Send("s1", event("while offline"))

	fresh := &fakeTransport{}
	h.Connect("s1", "u1", fresh)
	got := fresh.events()
	if len(got) != 3 {
		t.Fatalf("expected connected + 2 replayed, got %d", len(got))
	}
	if got[1].Message != "kept" || got[2].Message != "while offline" {
		t.Fatalf("unexpected replay: %+v", got[1:])
	}
}

func TestUserFor(t *testing.T) {
	h := New()
	h.Connect("s1", "u1", &fakeTransport{})
	if got := h.UserFor("s1"); got != "u1" {
		t.Fatalf("expected u1, got %q", got)
	}
	if got := h.UserFor("missing"); got != "" {
		t.Fatalf("expected empty user, got %q", got)
	}
}

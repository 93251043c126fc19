package hub

import "github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"

// ring is a fixed-capacity event buffer. Once full, the oldest event is
// overwritten. It bounds memory per session regardless of client liveness.
type ring struct {
	buf   []domain.AgentEvent
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.AgentEvent, capacity)}
}

func (r *ring) push(ev domain.AgentEvent) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = ev
		r.n++
		return
	}
	r.buf[r.start] = ev
	r.start = (r.start + 1) % len(r.buf)
}

// items returns the buffered events in insertion order.
func (r *ring) items() []domain.AgentEvent {
	out := make([]domain.AgentEvent, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

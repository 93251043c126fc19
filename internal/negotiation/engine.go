// Package negotiation implements the turn-based salary negotiation machine.
//
// Unlike the pipeline it is driven per inbound message: one human utterance
// in, one counter-response out, updated state returned to the caller, who
// persists it and supplies it back on the next message. There is no
// autonomous looping, so no background goroutine or channel is needed.
package negotiation

import (
	"context"
	"fmt"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// DefaultMaxTurns forces a stalemate when no win/lose signal has arrived.
const DefaultMaxTurns = 10

// ResponseGenerator produces the counter-response for one turn. It is an
// external collaborator; the engine only sequences turns and phases.
type ResponseGenerator interface {
	Generate(ctx context.Context, n *domain.Negotiation, message string) (domain.NegotiationReply, error)
}

// Engine classifies the phase from the turn counter, generates the
// counter-response and evaluates the win/lose/stalemate conditions.
type Engine struct {
	gen ResponseGenerator
}

// New creates an Engine.
func New(gen ResponseGenerator) *Engine {
	return &Engine{gen: gen}
}

// PhaseFor maps a turn counter to its phase band: 1-2 opening, 3-5 counter,
// 6-8 objection handling, 9+ final.
func PhaseFor(turn int) domain.NegotiationPhase {
	switch {
	case turn <= 2:
		return domain.NegotiationPhaseOpening
	case turn <= 5:
		return domain.NegotiationPhaseCounter
	case turn <= 8:
		return domain.NegotiationPhaseObjection
	default:
		return domain.NegotiationPhaseFinal
	}
}

// HandleMessage runs one turn. The returned state is the caller's to
// persist; the reply text is what goes back to the human.
func (e *Engine) HandleMessage(ctx context.Context, n *domain.Negotiation, message string) (domain.NegotiationReply, error) {
	if n.Status != domain.NegotiationStatusActive {
		return domain.NegotiationReply{}, fmt.Errorf("negotiation %s is %s, not active", n.NegotiationID, n.Status)
	}

	n.Turn++
	n.Phase = PhaseFor(n.Turn)

	reply, err := e.gen.Generate(ctx, n, message)
	if err != nil {
		n.Turn--
		n.Phase = PhaseFor(max(n.Turn, 1))
		return domain.NegotiationReply{}, fmt.Errorf("response generation failed: %w", err)
	}

	n.History = append(n.History, domain.NegotiationTurn{
		Turn:     n.Turn,
		Phase:    n.Phase,
		Inbound:  message,
		Response: reply.Text,
		At:       time.Now(),
	})

	maxTurns := n.MaxTurns
	if maxTurns == 0 {
		maxTurns = DefaultMaxTurns
	}

	switch {
	case reply.Signal == domain.NegotiationSignalWin:
		n.Status = domain.NegotiationStatusWon
	case reply.Signal == domain.NegotiationSignalLose:
		n.Status = domain.NegotiationStatusLost
	case n.Turn >= maxTurns:
		// Max turns without an explicit signal forces a stalemate on this
		// very turn, not on the next one.
		n.Status = domain.NegotiationStatusStalemate
	}

	n.UpdatedAt = time.Now()
	return reply, nil
}

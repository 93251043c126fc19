package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// ScriptedGenerator is the default response generator: canned phase-aware
// replies plus simple recognition of explicit accept/withdraw language in
// the inbound message.
type ScriptedGenerator struct{}

func (ScriptedGenerator) Generate(ctx context.Context, n *domain.Negotiation, message string) (domain.NegotiationReply, error) {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "accept") || strings.Contains(lower, "we can do"):
		return domain.NegotiationReply{
			Text:   "Great, thank you. Please send over the updated offer letter.",
			Signal: domain.NegotiationSignalWin,
		}, nil
	case strings.Contains(lower, "withdraw") || strings.Contains(lower, "rescind"):
		return domain.NegotiationReply{
			Text:   "Understood. Thank you for your time and consideration.",
			Signal: domain.NegotiationSignalLose,
		}, nil
	}

	var text string
	switch n.Phase {
	case domain.NegotiationPhaseOpening:
		text = "Thanks for the offer, I'm excited about the role. Could you share how much flexibility there is on the base salary?"
	case domain.NegotiationPhaseCounter:
		if n.TargetSalary > 0 {
			text = fmt.Sprintf("Based on my experience and market data, I was targeting %d. Can we get closer to that number?", n.TargetSalary)
		} else {
			text = "Based on my experience and market data, I believe a higher base is warranted. Can we revisit the number?"
		}
	case domain.NegotiationPhaseObjection:
		text = "I hear the budget concern. Would a signing bonus or an earlier review cycle help bridge the gap?"
	default:
		text = "I want to close this out. What is the best final number you can put forward?"
	}

	return domain.NegotiationReply{Text: text, Signal: domain.NegotiationSignalNone}, nil
}

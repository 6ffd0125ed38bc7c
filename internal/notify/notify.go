// Package notify delivers human-readable session notifications to the
// administrator over Telegram, and hosts the admin bot command surface.
package notify

import "context"

// Outcome is the explicit delivery result of a best-effort notification.
// There is no retry beyond the transport's own attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// Relay sends one message to the administrator. Implementations must never
// return an error to the caller: delivery failure is an Outcome, logged at
// the boundary and invisible to the candidate.
type Relay interface {
	Notify(ctx context.Context, text string) Outcome
}

// NopRelay drops every message. Used when the bot is disabled.
type NopRelay struct{}

func (NopRelay) Notify(context.Context, string) Outcome { return OutcomeDelivered }

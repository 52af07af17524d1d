package contracts

import (
	"github.com/pkg/errors"

	"github.com/tac0turtle/pokeledger/ledger/actor"
	"github.com/tac0turtle/pokeledger/ledger/ticket"
)

var (
	// ErrUnauthorized is returned when a non-admin calls an admin entrypoint
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyHasTicket is returned when minting for a user who still holds a ticket
	ErrAlreadyHasTicket = errors.New("user already has a ticket")
	// ErrMissingTicket is returned when poking another contract without a ticket
	ErrMissingTicket = errors.New("user needs a ticket to poke another contract")
	// ErrTicketMismatch is returned when a ticket is presented by someone other than its issuer
	ErrTicketMismatch = errors.New("sender does not match ticket issuer")
	// ErrTargetNotFound is returned when the called contract or entrypoint does not exist
	ErrTargetNotFound = actor.ErrTargetNotFound
	// ErrDeliveryFailed is returned when an emitted call could not be enqueued at its target
	ErrDeliveryFailed = errors.New("call could not be delivered")
	// ErrUnknownMessage is returned for messages the contract does not understand
	ErrUnknownMessage = errors.New("unknown message")
)

// errorKind labels err for metrics
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyHasTicket):
		return "already_has_ticket"
	case errors.Is(err, ErrMissingTicket):
		return "missing_ticket"
	case errors.Is(err, ErrTicketMismatch):
		return "ticket_mismatch"
	case errors.Is(err, ErrTargetNotFound):
		return "target_not_found"
	case errors.Is(err, ticket.ErrConsumed), errors.Is(err, ticket.ErrInvalid):
		return "invalid_ticket"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrUnknownMessage):
		return "unknown_message"
	default:
		return "internal"
	}
}

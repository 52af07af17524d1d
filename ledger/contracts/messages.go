package contracts

import (
	"github.com/filecoin-project/go-address"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tac0turtle/pokeledger/ledger/feedback"
	"github.com/tac0turtle/pokeledger/ledger/ticket"
)

// Entrypoint names exported by PokeContract
const (
	EntrypointCreateTicket      = "create_ticket"
	EntrypointUpdateFeedback    = "update_feedback"
	EntrypointPoke              = "poke"
	EntrypointPokeWithMessage   = "poke_with_message"
	EntrypointPokeOtherContract = "poke_other_contract"
	EntrypointPokeMeBack        = "poke_me_back"
)

// PokeTicket authorizes its holder to poke another contract once. The
// payload is the user the ticket was minted for.
type PokeTicket = ticket.Ticket[address.Address]

// Entrypoint messages
type (
	// CreateTicket mints a poke ticket for User. Admin only.
	CreateTicket struct {
		User address.Address
	}

	// UpdateFeedback replaces the reply function. Admin only.
	UpdateFeedback struct {
		Feedback feedback.Function
	}

	// Poke records an empty message from the caller
	Poke struct{}

	// PokeWithMessage records Message from the caller
	PokeWithMessage struct {
		Message string
	}

	// PokeOtherContract spends the caller's ticket to poke Target
	PokeOtherContract struct {
		Target address.Address
	}

	// PokeMeBack asks the receiver to answer the calling contract
	PokeMeBack struct {
		Ticket PokeTicket
	}
)

func (CreateTicket) Entrypoint() string      { return EntrypointCreateTicket }
func (UpdateFeedback) Entrypoint() string    { return EntrypointUpdateFeedback }
func (Poke) Entrypoint() string              { return EntrypointPoke }
func (PokeWithMessage) Entrypoint() string   { return EntrypointPokeWithMessage }
func (PokeOtherContract) Entrypoint() string { return EntrypointPokeOtherContract }
func (PokeMeBack) Entrypoint() string        { return EntrypointPokeMeBack }

// Validate implements actor.Validatable
func (m CreateTicket) Validate() error {
	if m.User == address.Undef {
		return errors.New("user address is required")
	}
	return nil
}

// Validate implements actor.Validatable
func (m UpdateFeedback) Validate() error {
	if !m.Feedback.Valid() {
		return errors.New("feedback function needs a name and a body")
	}
	return nil
}

// Validate implements actor.Validatable
func (m PokeOtherContract) Validate() error {
	if m.Target == address.Undef {
		return errors.New("target address is required")
	}
	return nil
}

// View messages. They never change storage.
type (
	// GetMessage returns the message recorded for Addr and whether one exists
	GetMessage struct {
		Addr address.Address
	}

	// GetMessages returns a copy of the whole message store
	GetMessages struct{}

	// HasTicket reports whether User holds an unspent ticket
	HasTicket struct {
		User address.Address
	}

	// GetAdmin returns the admin address
	GetAdmin struct{}

	// GetFeedback returns the name of the active feedback function
	GetFeedback struct{}
)

// MessageEntry is the reply to GetMessage
type MessageEntry struct {
	Message string
	Found   bool
}

// Receipt is returned to the caller of a successful entrypoint
type Receipt struct {
	Operation  uuid.UUID
	Entrypoint string
	// Emitted is the entrypoint of the outbound call, empty when none was sent
	Emitted string
}

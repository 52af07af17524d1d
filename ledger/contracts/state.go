package contracts

import (
	"sort"

	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"

	"github.com/tac0turtle/pokeledger/ledger/feedback"
	"github.com/tac0turtle/pokeledger/ledger/storage"
	"github.com/tac0turtle/pokeledger/ledger/ticket"
)

// ticketAmount is the amount minted by create_ticket
const ticketAmount = 1

// heldTicket is a ticket store slot. The contract remembers what it
// minted so the slot can be persisted without inspecting the ticket.
type heldTicket struct {
	ticket PokeTicket
	issuer address.Address
	amount uint64
}

// state is the storage of one PokeContract
type state struct {
	admin    address.Address
	messages map[address.Address]string
	tickets  map[address.Address]heldTicket
	feedback feedback.Function
}

func newState(admin address.Address, fn feedback.Function) *state {
	return &state{
		admin:    admin,
		messages: make(map[address.Address]string),
		tickets:  make(map[address.Address]heldTicket),
		feedback: fn,
	}
}

// clone returns a copy an entrypoint may mutate freely
func (s *state) clone() *state {
	next := &state{
		admin:    s.admin,
		messages: make(map[address.Address]string, len(s.messages)),
		tickets:  make(map[address.Address]heldTicket, len(s.tickets)),
		feedback: s.feedback,
	}
	for k, v := range s.messages {
		next.messages[k] = v
	}
	for k, v := range s.tickets {
		next.tickets[k] = v
	}
	return next
}

func (s *state) snapshot() storage.Snapshot {
	snap := storage.Snapshot{
		Admin:    s.admin.String(),
		Messages: make(map[string]string, len(s.messages)),
		Tickets:  make([]storage.TicketRecord, 0, len(s.tickets)),
		Feedback: s.feedback.Name,
	}
	for addr, msg := range s.messages {
		snap.Messages[addr.String()] = msg
	}
	for holder, held := range s.tickets {
		if !held.ticket.Live() {
			continue
		}
		snap.Tickets = append(snap.Tickets, storage.TicketRecord{
			Holder: holder.String(),
			Issuer: held.issuer.String(),
			Amount: held.amount,
		})
	}
	sort.Slice(snap.Tickets, func(i, j int) bool {
		return snap.Tickets[i].Holder < snap.Tickets[j].Holder
	})
	return snap
}

func stateFromSnapshot(snap storage.Snapshot) (*state, error) {
	admin, err := address.NewFromString(snap.Admin)
	if err != nil {
		return nil, errors.Wrap(err, "parse admin")
	}
	fn, err := feedback.Lookup(snap.Feedback)
	if err != nil {
		return nil, err
	}

	s := newState(admin, fn)
	for k, msg := range snap.Messages {
		addr, err := address.NewFromString(k)
		if err != nil {
			return nil, errors.Wrapf(err, "parse message key %q", k)
		}
		s.messages[addr] = msg
	}
	for _, rec := range snap.Tickets {
		holder, err := address.NewFromString(rec.Holder)
		if err != nil {
			return nil, errors.Wrapf(err, "parse ticket holder %q", rec.Holder)
		}
		issuer, err := address.NewFromString(rec.Issuer)
		if err != nil {
			return nil, errors.Wrapf(err, "parse ticket issuer %q", rec.Issuer)
		}
		s.tickets[holder] = heldTicket{
			ticket: ticket.Mint(issuer, holder, rec.Amount),
			issuer: issuer,
			amount: rec.Amount,
		}
	}
	return s, nil
}

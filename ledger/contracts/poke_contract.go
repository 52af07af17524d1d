package contracts

import (
	"context"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-address"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/tac0turtle/pokeledger/ledger/actor"
	"github.com/tac0turtle/pokeledger/ledger/feedback"
	"github.com/tac0turtle/pokeledger/ledger/storage"
	"github.com/tac0turtle/pokeledger/ledger/ticket"
)

var exported = map[string]bool{
	EntrypointCreateTicket:      true,
	EntrypointUpdateFeedback:    true,
	EntrypointPoke:              true,
	EntrypointPokeWithMessage:   true,
	EntrypointPokeOtherContract: true,
	EntrypointPokeMeBack:        true,
}

// PokeContract records pokes from other accounts and contracts. The
// admin mints tickets that let a user make this contract poke another
// one, which answers with its feedback function.
//
// Every entrypoint runs against a copy of the storage. The copy replaces
// the live storage only when the entrypoint succeeds and, if a store is
// configured, has been persisted.
type PokeContract struct {
	mu    sync.RWMutex
	state *state
	store *storage.Store
}

// Option configures a PokeContract
type Option func(*PokeContract)

// WithStore persists every committed state to store
func WithStore(store *storage.Store) Option {
	return func(c *PokeContract) {
		c.store = store
	}
}

// WithFeedback installs fn instead of the default feedback function
func WithFeedback(fn feedback.Function) Option {
	return func(c *PokeContract) {
		c.state.feedback = fn
	}
}

// NewPokeContract creates a contract administered by admin
func NewPokeContract(admin address.Address, opts ...Option) *PokeContract {
	c := &PokeContract{
		state: newState(admin, feedback.Default()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exports implements actor.Exporter
func (c *PokeContract) Exports(entrypoint string) bool {
	return exported[entrypoint]
}

// outbound is a call emitted by an entrypoint. It is enqueued after the
// new state is persisted and before it goes live. A droppable call may be
// lost without failing the entrypoint.
type outbound struct {
	target    *actor.PID
	msg       actor.Entrypoint
	droppable bool
	dropped   bool
}

// Receive processes incoming messages
func (c *PokeContract) Receive(ctx actor.Context, msg any) {
	switch m := msg.(type) {
	case actor.Started:
		ctx.Logger().Info("poke contract started", "admin", c.admin())

	case actor.Stopping:
		ctx.Logger().Debug("poke contract stopping")

	case GetMessage:
		c.mu.RLock()
		text, ok := c.state.messages[m.Addr]
		c.mu.RUnlock()
		ctx.Respond(MessageEntry{Message: text, Found: ok})

	case GetMessages:
		c.mu.RLock()
		messages := make(map[address.Address]string, len(c.state.messages))
		for k, v := range c.state.messages {
			messages[k] = v
		}
		c.mu.RUnlock()
		ctx.Respond(messages)

	case HasTicket:
		c.mu.RLock()
		held, ok := c.state.tickets[m.User]
		c.mu.RUnlock()
		ctx.Respond(ok && held.ticket.Live())

	case GetAdmin:
		ctx.Respond(c.admin())

	case GetFeedback:
		c.mu.RLock()
		name := c.state.feedback.Name
		c.mu.RUnlock()
		ctx.Respond(name)

	case actor.Entrypoint:
		c.execute(ctx, m)

	default:
		err := errors.Wrapf(ErrUnknownMessage, "%T", msg)
		ctx.Self().Metrics().ObserveFailure(errorKind(err))
		ctx.Logger().Error("unknown message", "messageType", fmt.Sprintf("%T", msg))
		ctx.Respond(err)
	}
}

// execute runs one entrypoint as a transaction
func (c *PokeContract) execute(ctx actor.Context, msg actor.Entrypoint) {
	c.mu.RLock()
	prev := c.state
	next := prev.clone()
	c.mu.RUnlock()

	out, err := c.apply(ctx, next, msg)
	if err == nil {
		err = c.commit(ctx, prev, next, out)
	}
	if err != nil {
		ctx.Self().Metrics().ObserveFailure(errorKind(err))
		if _, isRequest := ctx.Message().(*actor.Request); isRequest {
			ctx.Logger().Info("entrypoint rejected",
				"entrypoint", msg.Entrypoint(),
				"sender", ctx.Sender().String(),
				"error", err)
			ctx.Respond(err)
		} else {
			// Nobody is waiting for an internal call; the failure ends here
			ctx.Logger().Error("internal call failed",
				"entrypoint", msg.Entrypoint(),
				"sender", ctx.Sender().String(),
				"operation", ctx.Operation().String(),
				"error", err)
		}
		return
	}

	receipt := Receipt{
		Operation:  ctx.Operation(),
		Entrypoint: msg.Entrypoint(),
	}
	if out != nil && !out.dropped {
		receipt.Emitted = out.msg.Entrypoint()
	}

	ctx.Logger().Debug("entrypoint committed",
		"entrypoint", msg.Entrypoint(),
		"sender", ctx.Sender().String(),
		"operation", ctx.Operation().String())
	ctx.Respond(receipt)
}

// apply runs the entrypoint logic against st
func (c *PokeContract) apply(ctx actor.Context, st *state, msg actor.Entrypoint) (*outbound, error) {
	switch m := msg.(type) {
	case CreateTicket:
		return nil, c.createTicket(ctx, st, m)
	case UpdateFeedback:
		return nil, c.updateFeedback(ctx, st, m)
	case Poke:
		st.messages[ctx.Sender()] = ""
		return nil, nil
	case PokeWithMessage:
		st.messages[ctx.Sender()] = m.Message
		return nil, nil
	case PokeOtherContract:
		return c.pokeOtherContract(ctx, st, m)
	case PokeMeBack:
		return c.pokeMeBack(ctx, st, m)
	default:
		return nil, errors.Wrapf(ErrUnknownMessage, "entrypoint %q", msg.Entrypoint())
	}
}

func (c *PokeContract) createTicket(ctx actor.Context, st *state, m CreateTicket) error {
	if ctx.Source() != st.admin {
		return errors.Wrap(ErrUnauthorized, "only admin can create tickets")
	}
	// A user's existing ticket must not be overwritten and destroyed
	if _, ok := st.tickets[m.User]; ok {
		return errors.Wrapf(ErrAlreadyHasTicket, "user %s", m.User)
	}

	st.tickets[m.User] = heldTicket{
		ticket: ticket.Mint(ctx.Address(), m.User, ticketAmount),
		issuer: ctx.Address(),
		amount: ticketAmount,
	}
	return nil
}

func (c *PokeContract) updateFeedback(ctx actor.Context, st *state, m UpdateFeedback) error {
	if ctx.Source() != st.admin {
		return errors.Wrap(ErrUnauthorized, "only admin can update feedback")
	}
	st.feedback = m.Feedback
	return nil
}

func (c *PokeContract) pokeOtherContract(ctx actor.Context, st *state, m PokeOtherContract) (*outbound, error) {
	held, ok := st.tickets[ctx.Source()]
	if !ok {
		return nil, errors.Wrapf(ErrMissingTicket, "user %s", ctx.Source())
	}
	delete(st.tickets, ctx.Source())

	target, err := ctx.System().Resolve(m.Target, EntrypointPokeMeBack)
	if err != nil {
		return nil, err
	}

	return &outbound{target: target, msg: PokeMeBack{Ticket: held.ticket}}, nil
}

func (c *PokeContract) pokeMeBack(ctx actor.Context, st *state, m PokeMeBack) (*outbound, error) {
	// Reading the ticket destroys it
	contents, err := ticket.Inspect(m.Ticket)
	if err != nil {
		return nil, errors.Wrap(err, "read ticket")
	}
	if contents.Issuer != ctx.Sender() {
		return nil, errors.Wrapf(ErrTicketMismatch, "ticket issued by %s presented by %s", contents.Issuer, ctx.Sender())
	}

	reply := st.feedback.Call(ctx.Sender())

	target, err := ctx.System().Resolve(ctx.Sender(), EntrypointPokeWithMessage)
	if err != nil {
		ctx.Self().Metrics().ObserveFailure("reply_dropped")
		ctx.Logger().Info("failed to find contract",
			"target", ctx.Sender().String(),
			"operation", ctx.Operation().String(),
			"error", err)
		return nil, nil
	}

	return &outbound{target: target, msg: PokeWithMessage{Message: reply}, droppable: true}, nil
}

func (c *PokeContract) commit(ctx actor.Context, prev, next *state, out *outbound) error {
	if err := c.persist(ctx, next); err != nil {
		return errors.Wrap(err, "persist contract state")
	}

	if out != nil {
		if err := ctx.Tell(out.target, out.msg); err != nil {
			if !out.droppable {
				err = errors.Wrapf(ErrDeliveryFailed, "%s to %s: %v", out.msg.Entrypoint(), out.target.Name(), err)
				if rerr := c.persist(ctx, prev); rerr != nil {
					return multierror.Append(err, errors.Wrap(rerr, "restore persisted state"))
				}
				return err
			}
			out.dropped = true
			ctx.Self().Metrics().ObserveFailure("reply_dropped")
			ctx.Logger().Info("reply dropped",
				"target", out.target.Name(),
				"entrypoint", out.msg.Entrypoint(),
				"operation", ctx.Operation().String(),
				"error", err)
		}
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	return nil
}

func (c *PokeContract) persist(ctx actor.Context, st *state) error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(context.Background(), ctx.Address(), st.snapshot())
}

func (c *PokeContract) admin() address.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.admin
}

// Snapshot returns the durable form of the contract's storage
func (c *PokeContract) Snapshot() storage.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.snapshot()
}

// Restore replaces the contract's storage with snap
func (c *PokeContract) Restore(snap storage.Snapshot) error {
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, "restore contract state")
	}

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	return nil
}

// SaveState implements actor.StatefulActor
func (c *PokeContract) SaveState() ([]byte, error) {
	snap := c.Snapshot()
	snap.Version = storage.SnapshotVersion
	return storage.Marshal(snap)
}

// RestoreState implements actor.StatefulActor
func (c *PokeContract) RestoreState(data []byte) error {
	var snap storage.Snapshot
	if err := storage.Unmarshal(data, &snap); err != nil {
		return errors.Wrap(err, "decode contract state")
	}
	return c.Restore(snap)
}

package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"github.com/filecoin-project/go-address"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PID is a process identifier for an actor living at a ledger address
type PID struct {
	addr       address.Address
	system     *System
	actor      Actor
	mailbox    chan Envelope
	ctx        context.Context
	cancel     context.CancelFunc
	logger     log.Logger
	supervisor SupervisorStrategy
	metrics    *Metrics

	// State management
	running  atomic.Bool
	restarts atomic.Int32
	started  chan struct{} // Signal when actor is fully started
}

// Envelope wraps a message with call metadata.
// Sender is the immediate caller, Source the external account that
// originated the operation. Every call emitted while handling an
// envelope shares its Operation.
type Envelope struct {
	ID        uuid.UUID
	Operation uuid.UUID
	Message   any
	Sender    address.Address
	Source    address.Address
	Timestamp time.Time
}

// Tell sends a fire-and-forget message to the actor with no caller
func (p *PID) Tell(msg any) error {
	return p.Send(msg, address.Undef)
}

// Send sends a message on behalf of an external account, starting a new operation
func (p *PID) Send(msg any, from address.Address) error {
	return p.tell(Envelope{
		Operation: uuid.New(),
		Message:   msg,
		Sender:    from,
		Source:    from,
	})
}

func (p *PID) tell(envelope Envelope) error {
	// Check if actor is running (unless it's a system message)
	if !p.IsRunning() {
		switch envelope.Message.(type) {
		case Started, Stopping:
			// Allow system messages even when not running
		default:
			return errors.Errorf("actor %s is not running", p.addr)
		}
	}

	msg := envelope.Message
	if req, ok := msg.(*Request); ok {
		msg = req.Message
	}
	if v, ok := msg.(Validatable); ok {
		if err := v.Validate(); err != nil {
			p.metrics.InvalidMessages.Add(1)
			return errors.Wrap(err, "message validation failed")
		}
	}

	envelope.ID = uuid.New()
	envelope.Timestamp = time.Now()

	// Count before enqueueing so Drain never observes a delivered but uncounted envelope
	p.system.inflight.add()
	select {
	case p.mailbox <- envelope:
		p.metrics.MessagesSent.Add(1)
		return nil
	default:
		p.system.inflight.done()
		p.metrics.dropped()
		return errors.Errorf("actor %s mailbox full", p.addr)
	}
}

// Request sends a message without a caller and waits for a response
func (p *PID) Request(msg any, timeout time.Duration) (any, error) {
	return p.RequestFrom(address.Undef, msg, timeout)
}

// RequestFrom sends a message on behalf of an external account and waits for a response
func (p *PID) RequestFrom(from address.Address, msg any, timeout time.Duration) (any, error) {
	return p.RequestFromContext(context.Background(), from, msg, timeout)
}

// RequestFromContext is RequestFrom that also stops waiting when ctx is done.
// Giving up on the reply does not withdraw the message: an actor that
// already accepted it may still process it after the error is returned.
func (p *PID) RequestFromContext(ctx context.Context, from address.Address, msg any, timeout time.Duration) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := make(chan any, 1)
	req := &Request{
		Message: msg,
		Reply:   reply,
	}

	if err := p.Send(req, from); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-reply:
		if err, ok := resp.(error); ok {
			return nil, err
		}
		return resp, nil
	case <-timer.C:
		p.metrics.Timeouts.Add(1)
		return nil, errors.Errorf("request to %s timed out after %v", p.addr, timeout)
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "request to %s", p.addr)
	}
}

// Stop gracefully stops the actor. It returns an error when the actor
// did not reach the Stopping message in time and had to be forced.
func (p *PID) Stop() error {
	if !p.running.Load() {
		return nil
	}

	var forced error
	if err := p.Tell(Stopping{}); err != nil {
		forced = errors.Wrapf(err, "actor %s forced to stop", p.addr)
	} else {
		timeout := time.NewTimer(5 * time.Second)
		defer timeout.Stop()

		for p.running.Load() && forced == nil {
			select {
			case <-timeout.C:
				forced = errors.Errorf("actor %s forced to stop", p.addr)
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}

	p.halt()
	return forced
}

// Address returns the ledger address the actor is registered at
func (p *PID) Address() address.Address {
	return p.addr
}

// Name returns the actor's address as a string
func (p *PID) Name() string {
	return p.addr.String()
}

// Metrics returns the actor's metrics
func (p *PID) Metrics() *Metrics {
	return p.metrics
}

// IsRunning returns whether the actor is running
func (p *PID) IsRunning() bool {
	return p.running.Load()
}

// Exports reports whether the actor exposes the named entrypoint.
// Actors that do not implement Exporter accept any entrypoint.
func (p *PID) Exports(entrypoint string) bool {
	if e, ok := p.actor.(Exporter); ok {
		return e.Exports(entrypoint)
	}
	return true
}

// run is the main actor loop
func (p *PID) run() {
	defer func() {
		p.running.Store(false)
		if r := recover(); r != nil {
			p.metrics.Panics.Add(1)
			p.logger.Error("actor panic", "panic", r)
		}
	}()

	p.running.Store(true)
	close(p.started)

	for {
		select {
		case envelope := <-p.mailbox:
			if !p.running.Load() {
				// Actor is stopping, don't process new messages
				p.system.inflight.done()
				return
			}
			p.processMessage(envelope)
			p.system.inflight.done()
		case <-p.ctx.Done():
			p.running.Store(false)
			return
		}
	}
}

func (p *PID) processMessage(envelope Envelope) {
	ctx := &actorContext{
		self:     p,
		system:   p.system,
		logger:   p.logger,
		envelope: envelope,
	}

	p.metrics.MessagesReceived.Add(1)
	start := time.Now()

	defer func() {
		p.metrics.observe(time.Since(start))
		if r := recover(); r != nil {
			p.handleMessagePanic(ctx, r)
		}
	}()

	switch msg := envelope.Message.(type) {
	case Started:
		p.logger.Debug("actor started")
		p.actor.Receive(ctx, msg)
	case Stopping:
		p.logger.Debug("actor stopping")
		p.actor.Receive(ctx, msg)
		p.running.Store(false)
	case *Request:
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.metrics.Panics.Add(1)
					msg.Reply <- fmt.Errorf("panic processing request: %v", r)
					p.applySupervisionDecision(p.decide(fmt.Errorf("request panic: %v", r)))
				}
			}()

			// Actor should call ctx.Respond() to send reply
			p.actor.Receive(ctx, msg.Message)
		}()
	default:
		p.actor.Receive(ctx, envelope.Message)
	}
}

func (p *PID) handleMessagePanic(ctx *actorContext, r any) {
	p.metrics.Panics.Add(1)
	p.logger.Error("panic processing message",
		"panic", r,
		"messageType", fmt.Sprintf("%T", ctx.envelope.Message),
		"operation", ctx.envelope.Operation)

	p.applySupervisionDecision(p.decide(fmt.Errorf("message panic: %v", r)))
}

func (p *PID) decide(err error) Decision {
	if p.supervisor == nil {
		return Resume
	}
	return p.supervisor.HandleFailure(p, err)
}

// applySupervisionDecision runs on the actor goroutine
func (p *PID) applySupervisionDecision(decision Decision) {
	switch decision {
	case Restart:
		p.restart()
	case Stop:
		p.halt()
	case Resume:
		// Continue processing
	case Escalate:
		p.logger.Error("escalating failure to system")
		p.halt()
	}
}

// restart discards pending messages and redelivers Started to the actor
func (p *PID) restart() {
	p.restarts.Add(1)
	p.metrics.Restarts.Add(1)
	p.logger.Info("restarting actor", "restarts", p.restarts.Load())

	p.discardMailbox()

	ctx := &actorContext{self: p, system: p.system, logger: p.logger, envelope: Envelope{Message: Started{}}}
	p.actor.Receive(ctx, Started{})
}

func (p *PID) halt() {
	p.running.Store(false)
	p.cancel()
	p.discardMailbox()
}

func (p *PID) discardMailbox() {
	for {
		select {
		case <-p.mailbox:
			p.system.inflight.done()
		default:
			return
		}
	}
}

// actorContext provides context for message processing
type actorContext struct {
	self     *PID
	system   *System
	logger   log.Logger
	envelope Envelope

	mu sync.Mutex
}

// Self returns the current actor's PID
func (c *actorContext) Self() *PID {
	return c.self
}

// Address returns the current actor's address
func (c *actorContext) Address() address.Address {
	return c.self.addr
}

// Sender returns the immediate caller of the current message
func (c *actorContext) Sender() address.Address {
	return c.envelope.Sender
}

// Source returns the external account that originated the operation
func (c *actorContext) Source() address.Address {
	return c.envelope.Source
}

// Operation returns the id shared by every call of the current operation
func (c *actorContext) Operation() uuid.UUID {
	return c.envelope.Operation
}

// System returns the actor system
func (c *actorContext) System() *System {
	return c.system
}

// Logger returns the actor's logger
func (c *actorContext) Logger() log.Logger {
	return c.logger
}

// Message returns the current message being processed
func (c *actorContext) Message() any {
	return c.envelope.Message
}

// Respond sends a response to a request
func (c *actorContext) Respond(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req, ok := c.envelope.Message.(*Request); ok {
		select {
		case req.Reply <- msg:
		default:
			c.logger.Error("failed to send reply: reply already sent")
		}
	}
}

// Tell sends a message to another actor as part of the current operation
func (c *actorContext) Tell(pid *PID, msg any) error {
	return pid.tell(Envelope{
		Operation: c.envelope.Operation,
		Message:   msg,
		Sender:    c.self.addr,
		Source:    c.envelope.Source,
	})
}

// Context is the interface provided to actors during message processing
type Context interface {
	Self() *PID
	Address() address.Address
	Sender() address.Address
	Source() address.Address
	Operation() uuid.UUID
	System() *System
	Logger() log.Logger
	Message() any
	Respond(msg any)
	Tell(pid *PID, msg any) error
}

// Package ticket implements non-duplicable capability tokens.
//
// A Ticket is a handle to a single ticket cell. Handles may be passed
// around and copied like any Go value, but every copy refers to the same
// cell and the cell can be inspected exactly once. Inspect is the only
// way to observe a ticket's contents and it consumes the ticket for
// every holder of a handle.
package ticket

import (
	"sync/atomic"

	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"
)

var (
	// ErrConsumed is returned when inspecting a ticket that was already inspected
	ErrConsumed = errors.New("ticket already consumed")
	// ErrInvalid is returned when inspecting the zero Ticket
	ErrInvalid = errors.New("invalid ticket")
)

// Contents is what a consumed ticket reveals
type Contents[T any] struct {
	Issuer  address.Address
	Payload T
	Amount  uint64
}

type cell[T any] struct {
	contents Contents[T]
	consumed atomic.Bool
}

// Ticket is a capability issued by Issuer carrying a Payload
type Ticket[T any] struct {
	c *cell[T]
}

// Mint creates a fresh ticket bound to issuer
func Mint[T any](issuer address.Address, payload T, amount uint64) Ticket[T] {
	return Ticket[T]{c: &cell[T]{contents: Contents[T]{
		Issuer:  issuer,
		Payload: payload,
		Amount:  amount,
	}}}
}

// Inspect consumes t and returns its contents
func Inspect[T any](t Ticket[T]) (Contents[T], error) {
	if t.c == nil {
		return Contents[T]{}, ErrInvalid
	}
	if !t.c.consumed.CompareAndSwap(false, true) {
		return Contents[T]{}, ErrConsumed
	}
	contents := t.c.contents
	t.c.contents = Contents[T]{}
	return contents, nil
}

// Live reports whether t can still be inspected
func (t Ticket[T]) Live() bool {
	return t.c != nil && !t.c.consumed.Load()
}

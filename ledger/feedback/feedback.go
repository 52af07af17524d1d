// Package feedback holds the swappable reply functions contracts use to
// answer a poke.
package feedback

import (
	"sync"

	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownFunction is returned when a function name is not in the catalog
	ErrUnknownFunction = errors.New("unknown feedback function")
	// ErrDuplicateFunction is returned when registering a name twice
	ErrDuplicateFunction = errors.New("feedback function already registered")
)

// Func computes the reply sent to the contract that poked us
type Func func(source address.Address) string

// Function is a named Func. The name identifies the function in
// snapshots; only catalogued functions can be restored.
type Function struct {
	Name string
	Fn   Func
}

// Call invokes the function
func (f Function) Call(source address.Address) string {
	return f.Fn(source)
}

// Valid reports whether the function can be installed on a contract
func (f Function) Valid() bool {
	return f.Name != "" && f.Fn != nil
}

// Default is installed on every new contract
func Default() Function {
	return Function{
		Name: "default",
		Fn:   func(address.Address) string { return "Hello!" },
	}
}

// PokedMe is the usual replacement installed by update_feedback
func PokedMe() Function {
	return Function{
		Name: "poked-me",
		Fn:   func(address.Address) string { return "You poked me!" },
	}
}

// Constant returns a function that always replies with message
func Constant(name, message string) Function {
	return Function{
		Name: name,
		Fn:   func(address.Address) string { return message },
	}
}

var catalog = struct {
	sync.RWMutex
	fns map[string]Function
}{fns: map[string]Function{}}

func init() {
	for _, f := range []Function{Default(), PokedMe()} {
		if err := Register(f); err != nil {
			panic(err)
		}
	}
}

// Register adds f to the catalog
func Register(f Function) error {
	if !f.Valid() {
		return errors.New("feedback function needs a name and a body")
	}

	catalog.Lock()
	defer catalog.Unlock()

	if _, ok := catalog.fns[f.Name]; ok {
		return errors.Wrap(ErrDuplicateFunction, f.Name)
	}
	catalog.fns[f.Name] = f
	return nil
}

// Lookup returns the catalogued function called name
func Lookup(name string) (Function, error) {
	catalog.RLock()
	defer catalog.RUnlock()

	f, ok := catalog.fns[name]
	if !ok {
		return Function{}, errors.Wrap(ErrUnknownFunction, name)
	}
	return f, nil
}

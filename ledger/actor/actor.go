package actor

// Actor is the interface that all actors must implement
type Actor interface {
	// Receive processes incoming messages
	Receive(ctx Context, msg any)
}

// Exporter is implemented by actors that expose named entrypoints.
// Resolve only routes a call to an actor exporting the requested entrypoint.
type Exporter interface {
	Exports(entrypoint string) bool
}

// Entrypoint is implemented by messages that target a named entrypoint
type Entrypoint interface {
	Entrypoint() string
}

// StatefulActor is an actor that can save and restore state
type StatefulActor interface {
	Actor

	// SaveState returns the current state to be persisted
	SaveState() ([]byte, error)

	// RestoreState restores the actor from persisted state
	RestoreState(state []byte) error
}

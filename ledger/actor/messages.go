package actor

// System messages
type (
	// Started is sent when an actor starts or is restarted by its supervisor
	Started struct{}

	// Stopping is sent when an actor is stopping
	Stopping struct{}
)

// Request wraps a message that expects a reply
type Request struct {
	Message any
	Reply   chan any
}

// Validatable messages can validate themselves
type Validatable interface {
	Validate() error
}

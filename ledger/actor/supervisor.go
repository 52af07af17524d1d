package actor

// Decision is a supervisor's verdict on an actor that panicked
type Decision int

const (
	// Resume drops the failed message and keeps the actor running
	Resume Decision = iota
	// Restart discards queued messages and redelivers Started
	Restart
	// Stop halts the actor
	Stop
	// Escalate halts the actor and reports the failure to the system log
	Escalate
)

// SupervisorStrategy decides what happens to an actor after a panic
type SupervisorStrategy interface {
	HandleFailure(actor *PID, err error) Decision
}

// DefaultSupervisor restarts a failing actor a few times, then stops it
func DefaultSupervisor() SupervisorStrategy {
	return restartLimit(3)
}

type restartLimit int32

func (l restartLimit) HandleFailure(actor *PID, _ error) Decision {
	if actor == nil || actor.restarts.Load() >= int32(l) {
		return Stop
	}
	return Restart
}

// ResumeSupervisor keeps the actor running after a failure. The failed
// message is dropped and the next one is processed against unchanged state.
type ResumeSupervisor struct{}

func (ResumeSupervisor) HandleFailure(*PID, error) Decision {
	return Resume
}

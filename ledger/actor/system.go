package actor

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/filecoin-project/go-address"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrTargetNotFound is returned when no running actor at an address exports the requested entrypoint
var ErrTargetNotFound = errors.New("target not found")

// System is the root of the actor system. It routes calls by address
// and tracks every envelope still waiting to be processed.
type System struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      log.Logger
	actors      map[address.Address]*PID
	mu          sync.RWMutex
	mailboxSize int
	collectors  *collectors
	inflight    *tracker
}

// NewSystem creates a new actor system
func NewSystem(ctx context.Context, logger log.Logger, opts ...SystemOption) *System {
	ctx, cancel := context.WithCancel(ctx)
	s := &System{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		actors:      make(map[address.Address]*PID),
		mailboxSize: 1000, // default
		inflight:    newTracker(),
	}

	cfg := &systemConfig{}
	for _, opt := range opts {
		opt(s, cfg)
	}
	s.collectors = newCollectors(cfg.registerer)

	return s
}

type systemConfig struct {
	registerer prometheus.Registerer
}

// SystemOption configures the actor system
type SystemOption func(*System, *systemConfig)

// WithMailboxSize sets the default mailbox size for actors
func WithMailboxSize(size int) SystemOption {
	return func(s *System, _ *systemConfig) {
		s.mailboxSize = size
	}
}

// WithRegisterer registers the system's collectors with reg
func WithRegisterer(reg prometheus.Registerer) SystemOption {
	return func(_ *System, c *systemConfig) {
		c.registerer = reg
	}
}

// Spawn starts an actor at addr and returns its PID
func (s *System) Spawn(addr address.Address, actor Actor, opts ...SpawnOption) (*PID, error) {
	if addr == address.Undef {
		return nil, errors.New("cannot spawn actor at undefined address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actors[addr]; exists {
		return nil, errors.Errorf("actor %s already exists", addr)
	}

	config := &spawnConfig{
		mailboxSize: s.mailboxSize,
		supervisor:  DefaultSupervisor(),
	}

	for _, opt := range opts {
		opt(config)
	}

	ctx, cancel := context.WithCancel(s.ctx)

	pid := &PID{
		addr:       addr,
		system:     s,
		actor:      actor,
		mailbox:    make(chan Envelope, config.mailboxSize),
		ctx:        ctx,
		cancel:     cancel,
		logger:     s.logger.With("actor", addr.String()),
		supervisor: config.supervisor,
		metrics:    s.collectors.forActor(addr.String()),
		started:    make(chan struct{}),
	}

	s.actors[addr] = pid

	go pid.run()

	// Wait for actor to be ready
	<-pid.started

	if err := pid.Tell(Started{}); err != nil {
		return nil, err
	}

	return pid, nil
}

// Get returns the actor registered at addr
func (s *System) Get(addr address.Address) (*PID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.actors[addr]
	return pid, ok
}

// Resolve returns the running actor at addr exporting entrypoint
func (s *System) Resolve(addr address.Address, entrypoint string) (*PID, error) {
	pid, ok := s.Get(addr)
	if !ok || !pid.IsRunning() {
		return nil, errors.Wrapf(ErrTargetNotFound, "no contract at %s", addr)
	}
	if !pid.Exports(entrypoint) {
		return nil, errors.Wrapf(ErrTargetNotFound, "contract %s has no entrypoint %q", addr, entrypoint)
	}
	return pid, nil
}

// Drain blocks until every accepted envelope, including the calls
// emitted while processing them, has been processed.
func (s *System) Drain(ctx context.Context) error {
	return s.inflight.wait(ctx)
}

// Shutdown gracefully stops all actors. Actors may still resolve other
// actors while they handle Stopping, so the registry is not locked
// while they stop.
func (s *System) Shutdown(timeout time.Duration) error {
	s.mu.RLock()
	pids := make([]*PID, 0, len(s.actors))
	for _, pid := range s.actors {
		pids = append(pids, pid)
	}
	s.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		result *multierror.Error
	)
	for _, pid := range pids {
		wg.Add(1)
		go func(p *PID) {
			defer wg.Done()
			if err := p.Stop(); err != nil {
				errsMu.Lock()
				result = multierror.Append(result, err)
				errsMu.Unlock()
			}
		}(pid)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return result.ErrorOrNil()
	case <-time.After(timeout):
		s.cancel()
		return errors.Errorf("shutdown timed out after %v", timeout)
	}
}

type spawnConfig struct {
	mailboxSize int
	supervisor  SupervisorStrategy
}

// SpawnOption configures actor spawning
type SpawnOption func(*spawnConfig)

// WithCustomMailboxSize sets a custom mailbox size for this actor
func WithCustomMailboxSize(size int) SpawnOption {
	return func(c *spawnConfig) {
		c.mailboxSize = size
	}
}

// WithSupervisor sets a custom supervisor strategy
func WithSupervisor(supervisor SupervisorStrategy) SpawnOption {
	return func(c *spawnConfig) {
		c.supervisor = supervisor
	}
}

// tracker counts envelopes that were accepted but not yet processed
type tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newTracker() *tracker {
	idle := make(chan struct{})
	close(idle)
	return &tracker{idle: idle}
}

func (t *tracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		return
	}
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

func (t *tracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.n == 0 {
			t.mu.Unlock()
			return nil
		}
		idle := t.idle
		t.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "drain")
		}
	}
}

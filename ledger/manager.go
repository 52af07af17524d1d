package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	"github.com/filecoin-project/go-address"
	"github.com/hashicorp/go-multierror"

	"github.com/tac0turtle/pokeledger/config"
	"github.com/tac0turtle/pokeledger/ledger/actor"
	"github.com/tac0turtle/pokeledger/ledger/contracts"
	"github.com/tac0turtle/pokeledger/ledger/storage"
)

// Manager deploys poke contracts on an actor system and routes
// external calls to them
type Manager struct {
	// Actor system
	system *actor.System

	// Deployed contracts
	mu        sync.RWMutex
	contracts map[address.Address]*contracts.PokeContract

	// Configuration
	config config.Config

	// Dependencies
	store  *storage.Store
	logger log.Logger
}

// NewManager creates a manager with the storage backend named in cfg
func NewManager(
	ctx context.Context,
	cfg config.Config,
	logger log.Logger,
	opts ...actor.SystemOption,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	opts = append([]actor.SystemOption{actor.WithMailboxSize(cfg.Actor.MailboxSize)}, opts...)
	system := actor.NewSystem(ctx, logger, opts...)

	return &Manager{
		system:    system,
		contracts: make(map[address.Address]*contracts.PokeContract),
		config:    cfg,
		store:     store,
		logger:    logger,
	}, nil
}

func openStore(cfg config.StorageConfig) (*storage.Store, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		store, err := storage.NewBadger(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemory(), nil
	}
}

// Deploy originates a poke contract administered by admin at addr. If a
// snapshot of addr exists the contract resumes from it and the stored
// admin wins over the one given here.
func (m *Manager) Deploy(ctx context.Context, addr, admin address.Address, opts ...contracts.Option) (*actor.PID, error) {
	opts = append(opts, contracts.WithStore(m.store))
	contract := contracts.NewPokeContract(admin, opts...)

	snap, err := m.store.Load(ctx, addr)
	switch {
	case err == nil:
		if err := contract.Restore(snap); err != nil {
			return nil, fmt.Errorf("failed to restore contract %s: %w", addr, err)
		}
		if snap.Admin != admin.String() {
			m.logger.Warn("stored admin differs from requested admin",
				"contract", addr.String(),
				"stored", snap.Admin,
				"requested", admin.String())
		}
		m.logger.Info("contract restored", "contract", addr.String(), "messages", len(snap.Messages), "tickets", len(snap.Tickets))
	case errors.Is(err, storage.ErrNotFound):
		// Origination commits the initial storage
		if err := m.store.Save(ctx, addr, contract.Snapshot()); err != nil {
			return nil, fmt.Errorf("failed to store contract %s: %w", addr, err)
		}
	default:
		return nil, fmt.Errorf("failed to load contract %s: %w", addr, err)
	}

	pid, err := m.system.Spawn(addr, contract, actor.WithSupervisor(actor.ResumeSupervisor{}))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn contract %s: %w", addr, err)
	}

	m.mu.Lock()
	m.contracts[addr] = contract
	m.mu.Unlock()

	m.logger.Info("contract deployed", "contract", addr.String(), "admin", contract.Snapshot().Admin)
	return pid, nil
}

// RestoreAll deploys every contract found in storage that is not running yet
func (m *Manager) RestoreAll(ctx context.Context) ([]address.Address, error) {
	addrs, err := m.store.Addresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored contracts: %w", err)
	}

	var restored []address.Address
	for _, addr := range addrs {
		if _, ok := m.system.Get(addr); ok {
			continue
		}
		snap, err := m.store.Load(ctx, addr)
		if err != nil {
			return restored, err
		}
		admin, err := address.NewFromString(snap.Admin)
		if err != nil {
			return restored, fmt.Errorf("contract %s has invalid admin: %w", addr, err)
		}
		if _, err := m.Deploy(ctx, addr, admin); err != nil {
			return restored, err
		}
		restored = append(restored, addr)
	}
	return restored, nil
}

// Submit sends msg from an external account to the contract at to and
// returns once that entrypoint has committed or failed. Calls emitted by
// the entrypoint may still be in flight.
//
// A timeout or a canceled ctx only ends the wait. Once the contract has
// accepted msg it may still commit, so such an error leaves the outcome
// unknown; query the contract to find out.
func (m *Manager) Submit(ctx context.Context, from, to address.Address, msg actor.Entrypoint) (contracts.Receipt, error) {
	pid, err := m.system.Resolve(to, msg.Entrypoint())
	if err != nil {
		return contracts.Receipt{}, err
	}

	reply, err := pid.RequestFromContext(ctx, from, msg, m.config.Actor.RequestTimeout.Duration)
	if err != nil {
		return contracts.Receipt{}, err
	}

	receipt, ok := reply.(contracts.Receipt)
	if !ok {
		return contracts.Receipt{}, fmt.Errorf("unexpected reply %T from %s", reply, to)
	}
	return receipt, nil
}

// Execute submits msg and waits until the whole operation, including
// every callback it triggered, has been processed
func (m *Manager) Execute(ctx context.Context, from, to address.Address, msg actor.Entrypoint) (contracts.Receipt, error) {
	receipt, err := m.Submit(ctx, from, to, msg)
	if err != nil {
		return receipt, err
	}
	return receipt, m.Drain(ctx)
}

// Query sends a view message to the contract at to
func (m *Manager) Query(ctx context.Context, to address.Address, view any) (any, error) {
	pid, ok := m.system.Get(to)
	if !ok {
		return nil, fmt.Errorf("no contract at %s: %w", to, actor.ErrTargetNotFound)
	}
	return pid.RequestFromContext(ctx, address.Undef, view, m.config.Actor.RequestTimeout.Duration)
}

// Message returns the message the contract at to recorded for from
func (m *Manager) Message(ctx context.Context, to, from address.Address) (string, bool, error) {
	reply, err := m.Query(ctx, to, contracts.GetMessage{Addr: from})
	if err != nil {
		return "", false, err
	}
	entry, ok := reply.(contracts.MessageEntry)
	if !ok {
		return "", false, fmt.Errorf("unexpected reply %T from %s", reply, to)
	}
	return entry.Message, entry.Found, nil
}

// Contract returns the deployed contract at addr
func (m *Manager) Contract(addr address.Address) (*contracts.PokeContract, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[addr]
	return c, ok
}

// Drain waits until no call is in flight
func (m *Manager) Drain(ctx context.Context) error {
	return m.system.Drain(ctx)
}

// Close stops every contract and closes the storage backend
func (m *Manager) Close() error {
	m.logger.Info("stopping ledger")

	var result *multierror.Error
	if err := m.system.Shutdown(m.config.Actor.ShutdownTimeout.Duration); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to stop contracts: %w", err))
	}
	if err := m.store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close storage: %w", err))
	}
	return result.ErrorOrNil()
}

// Package storage persists contract snapshots in a go-datastore backend.
package storage

import (
	"context"

	"github.com/filecoin-project/go-address"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	badger "github.com/ipfs/go-ds-badger2"
	"github.com/pkg/errors"
)

// SnapshotVersion is written into every snapshot
const SnapshotVersion = 1

// ErrNotFound is returned when no snapshot exists for an address
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the durable form of a contract's storage
type Snapshot struct {
	Version  uint64            `cbor:"1,keyasint"`
	Admin    string            `cbor:"2,keyasint"`
	Messages map[string]string `cbor:"3,keyasint"`
	Tickets  []TicketRecord    `cbor:"4,keyasint"`
	Feedback string            `cbor:"5,keyasint"`
}

// TicketRecord describes an unconsumed ticket held in a contract's ticket store
type TicketRecord struct {
	Holder string `cbor:"1,keyasint"`
	Issuer string `cbor:"2,keyasint"`
	Amount uint64 `cbor:"3,keyasint"`
}

// Store keeps one snapshot per contract address
type Store struct {
	root   ds.Batching
	states ds.Datastore
	index  ds.Datastore
}

// New wraps a batching datastore
func New(root ds.Batching) *Store {
	return &Store{
		root:   root,
		states: namespace.Wrap(root, ds.NewKey("/contracts")),
		index:  namespace.Wrap(root, ds.NewKey("/index")),
	}
}

// NewMemory returns a store backed by an in-memory map
func NewMemory() *Store {
	return New(dssync.MutexWrap(ds.NewMapDatastore()))
}

// NewBadger returns a store backed by a badger database at path
func NewBadger(path string) (*Store, error) {
	opts := badger.DefaultOptions
	db, err := badger.NewDatastore(path, &opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger datastore at %s", path)
	}
	return New(db), nil
}

func stateKey(addr address.Address) ds.Key {
	return ds.NewKey("/contracts").ChildString(addr.String())
}

func indexKey(addr address.Address) ds.Key {
	return ds.NewKey("/index").ChildString(addr.String())
}

// Save writes the snapshot of the contract at addr. The state and the
// index entry are committed in one batch.
func (s *Store) Save(ctx context.Context, addr address.Address, snap Snapshot) error {
	snap.Version = SnapshotVersion
	data, err := Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	batch, err := s.root.Batch(ctx)
	if err != nil {
		return errors.Wrap(err, "open batch")
	}
	if err := batch.Put(ctx, stateKey(addr), data); err != nil {
		return errors.Wrap(err, "stage snapshot")
	}
	if err := batch.Put(ctx, indexKey(addr), []byte{}); err != nil {
		return errors.Wrap(err, "stage index")
	}
	return errors.Wrapf(batch.Commit(ctx), "commit snapshot of %s", addr)
}

// Load reads the snapshot of the contract at addr
func (s *Store) Load(ctx context.Context, addr address.Address) (Snapshot, error) {
	data, err := s.states.Get(ctx, ds.NewKey(addr.String()))
	if errors.Is(err, ds.ErrNotFound) {
		return Snapshot{}, errors.Wrapf(ErrNotFound, "contract %s", addr)
	}
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read snapshot of %s", addr)
	}

	var snap Snapshot
	if err := Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(err, "decode snapshot of %s", addr)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, errors.Errorf("snapshot of %s has unsupported version %d", addr, snap.Version)
	}
	return snap, nil
}

// Delete removes the snapshot of the contract at addr
func (s *Store) Delete(ctx context.Context, addr address.Address) error {
	batch, err := s.root.Batch(ctx)
	if err != nil {
		return errors.Wrap(err, "open batch")
	}
	if err := batch.Delete(ctx, stateKey(addr)); err != nil {
		return err
	}
	if err := batch.Delete(ctx, indexKey(addr)); err != nil {
		return err
	}
	return batch.Commit(ctx)
}

// Addresses lists every contract with a stored snapshot
func (s *Store) Addresses(ctx context.Context) ([]address.Address, error) {
	results, err := s.index.Query(ctx, query.Query{KeysOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "query index")
	}
	entries, err := results.Rest()
	if err != nil {
		return nil, errors.Wrap(err, "read index")
	}

	addrs := make([]address.Address, 0, len(entries))
	for _, e := range entries {
		addr, err := address.NewFromString(ds.NewKey(e.Key).BaseNamespace())
		if err != nil {
			return nil, errors.Wrapf(err, "parse indexed address %q", e.Key)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Close releases the backing datastore
func (s *Store) Close() error {
	return s.root.Close()
}

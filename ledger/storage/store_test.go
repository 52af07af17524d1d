package storage_test

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tac0turtle/pokeledger/ledger/storage"
)

func testSnapshot() storage.Snapshot {
	return storage.Snapshot{
		Admin:    "t0100",
		Messages: map[string]string{"t0101": "", "t0102": "Hello"},
		Tickets:  []storage.TicketRecord{{Holder: "t0101", Issuer: "t01000", Amount: 1}},
		Feedback: "default",
	}
}

func testStore(t *testing.T, s *storage.Store) {
	ctx := context.Background()

	c1, err := address.NewIDAddress(1000)
	require.NoError(t, err)
	c2, err := address.NewIDAddress(1001)
	require.NoError(t, err)

	_, err = s.Load(ctx, c1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, s.Save(ctx, c1, testSnapshot()))
	require.NoError(t, s.Save(ctx, c2, storage.Snapshot{Admin: "t0100", Feedback: "poked-me"}))

	got, err := s.Load(ctx, c1)
	require.NoError(t, err)
	want := testSnapshot()
	want.Version = storage.SnapshotVersion
	assert.Equal(t, want, got)

	addrs, err := s.Addresses(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []address.Address{c1, c2}, addrs)

	// Saving again replaces the snapshot
	updated := testSnapshot()
	updated.Messages["t0103"] = "again"
	require.NoError(t, s.Save(ctx, c1, updated))
	got, err = s.Load(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, "again", got.Messages["t0103"])

	require.NoError(t, s.Delete(ctx, c1))
	_, err = s.Load(ctx, c1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	addrs, err = s.Addresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []address.Address{c2}, addrs)
}

func TestMemoryStore(t *testing.T) {
	s := storage.NewMemory()
	defer s.Close()
	testStore(t, s)
}

func TestBadgerStore(t *testing.T) {
	s, err := storage.NewBadger(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestDeterministicEncoding(t *testing.T) {
	a, err := storage.Marshal(testSnapshot())
	require.NoError(t, err)
	b, err := storage.Marshal(testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var decoded storage.Snapshot
	require.NoError(t, storage.Unmarshal(a, &decoded))
	assert.Equal(t, testSnapshot(), decoded)
}

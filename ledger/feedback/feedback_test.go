package feedback_test

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tac0turtle/pokeledger/ledger/feedback"
)

func TestBuiltins(t *testing.T) {
	source, err := address.NewIDAddress(1000)
	require.NoError(t, err)

	assert.Equal(t, "Hello!", feedback.Default().Call(source))
	assert.Equal(t, "You poked me!", feedback.PokedMe().Call(source))

	// Replies ignore who asked
	assert.Equal(t, "Hello!", feedback.Default().Call(address.Undef))
}

func TestCatalog(t *testing.T) {
	f, err := feedback.Lookup("default")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", f.Call(address.Undef))

	f, err = feedback.Lookup("poked-me")
	require.NoError(t, err)
	assert.Equal(t, "You poked me!", f.Call(address.Undef))

	_, err = feedback.Lookup("missing")
	assert.True(t, errors.Is(err, feedback.ErrUnknownFunction))

	greeting := feedback.Constant("catalog-test-greeting", "hi there")
	require.NoError(t, feedback.Register(greeting))
	err = feedback.Register(greeting)
	assert.True(t, errors.Is(err, feedback.ErrDuplicateFunction))

	f, err = feedback.Lookup("catalog-test-greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi there", f.Call(address.Undef))

	assert.Error(t, feedback.Register(feedback.Function{Name: "no-body"}))
	assert.Error(t, feedback.Register(feedback.Function{Fn: func(address.Address) string { return "" }}))
}

package contracts_test

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/stretchr/testify/assert"

	"github.com/tac0turtle/pokeledger/ledger/actor"
	"github.com/tac0turtle/pokeledger/ledger/contracts"
	"github.com/tac0turtle/pokeledger/ledger/feedback"
)

func TestMessages(t *testing.T) {
	t.Run("EntrypointNames", func(t *testing.T) {
		tests := []struct {
			msg  actor.Entrypoint
			want string
		}{
			{contracts.CreateTicket{}, "create_ticket"},
			{contracts.UpdateFeedback{}, "update_feedback"},
			{contracts.Poke{}, "poke"},
			{contracts.PokeWithMessage{}, "poke_with_message"},
			{contracts.PokeOtherContract{}, "poke_other_contract"},
			{contracts.PokeMeBack{}, "poke_me_back"},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, tt.msg.Entrypoint())
		}
	})

	t.Run("Validate", func(t *testing.T) {
		assert.Error(t, contracts.CreateTicket{}.Validate())
		assert.NoError(t, contracts.CreateTicket{User: alice}.Validate())

		assert.Error(t, contracts.PokeOtherContract{Target: address.Undef}.Validate())
		assert.NoError(t, contracts.PokeOtherContract{Target: c2}.Validate())

		assert.Error(t, contracts.UpdateFeedback{}.Validate())
		assert.Error(t, contracts.UpdateFeedback{Feedback: feedback.Function{Name: "empty"}}.Validate())
		assert.NoError(t, contracts.UpdateFeedback{Feedback: feedback.PokedMe()}.Validate())
	})
}

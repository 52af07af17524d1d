package actor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tac0turtle/pokeledger/ledger/actor"
)

func TestSupervisorDecisions(t *testing.T) {
	tests := []struct {
		name       string
		supervisor actor.SupervisorStrategy
		pid        *actor.PID
		want       actor.Decision
	}{
		{"DefaultFreshActor", actor.DefaultSupervisor(), &actor.PID{}, actor.Restart},
		{"DefaultNoActor", actor.DefaultSupervisor(), nil, actor.Stop},
		{"Resume", actor.ResumeSupervisor{}, &actor.PID{}, actor.Resume},
		{"ResumeNoActor", actor.ResumeSupervisor{}, nil, actor.Resume},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.supervisor.HandleFailure(tt.pid, assert.AnError))
		})
	}
}

package propagation

import (
	"testing"
	"time"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainArena(n int) (*core.Arena, []*core.Agent) {
	arena := core.NewArena()
	var chain []*core.Agent
	var parent string
	for i := 0; i < n; i++ {
		a := &core.Agent{
			ID:                  idFor(i),
			ParentID:            parent,
			Tuning:              []float64{1, 0, 0},
			ActivationThreshold: 0.99, // effectively never activates, isolates attenuation test
			State:               core.AgentListening,
		}
		arena.Add(a)
		chain = append(chain, a)
		parent = a.ID
	}
	return arena, chain
}

func idFor(i int) string { return string(rune('a' + i)) }

func baseConfig() *core.Config {
	return &core.Config{
		AttenuationFactor: 0.8,
		MinAmplitude:      0.1,
		MaxDepth:          50,
	}
}

func TestPropagateAttenuationDeathAfterEleventhHop(t *testing.T) {
	// Scenario 2 of spec §8: amplitude 1.0, attenuation 0.8, min 0.1 ->
	// dies after the 11th hop (0.8^11 ~= 0.0859 < 0.1); 10 hops survive.
	arena, chain := chainArena(12)
	require.Len(t, chain, 12)

	sig := &core.Signal{
		OriginID:  chain[0].ID,
		Direction: core.Downward,
		Amplitude: 1.0,
		Frequency: []float64{1, 0, 0},
	}
	result := Propagate(arena, sig, baseConfig())
	assert.Len(t, result.Deliveries, 10)
}

func TestPropagateUpwardWalksAncestorChain(t *testing.T) {
	arena, chain := chainArena(4)
	sig := &core.Signal{
		OriginID:  chain[3].ID,
		Direction: core.Upward,
		Amplitude: 1.0,
		Frequency: []float64{1, 0, 0},
	}
	result := Propagate(arena, sig, baseConfig())
	assert.Len(t, result.Deliveries, 3)
	assert.Equal(t, chain[2].ID, result.Deliveries[0].AgentID)
	assert.Equal(t, chain[1].ID, result.Deliveries[1].AgentID)
	assert.Equal(t, chain[0].ID, result.Deliveries[2].AgentID)
}

func TestPropagateActivatesListeningAgent(t *testing.T) {
	arena := core.NewArena()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentActive}
	child := &core.Agent{ID: "c1", ParentID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentListening}
	arena.Add(origin)
	arena.Add(child)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())

	require.Len(t, result.Deliveries, 1)
	assert.True(t, result.Deliveries[0].Activated)
	assert.Equal(t, core.AgentActive, child.State)
	assert.False(t, result.Unheard)
}

func TestPropagateDormantClearsSinceOnActivation(t *testing.T) {
	arena := core.NewArena()
	now := time.Now()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentActive}
	child := &core.Agent{ID: "c1", ParentID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentDormant, DormantSince: &now}
	arena.Add(origin)
	arena.Add(child)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	Propagate(arena, sig, baseConfig())

	assert.Equal(t, core.AgentActive, child.State)
	assert.Nil(t, child.DormantSince)
}

func TestPropagateUnheardWhenNoActivation(t *testing.T) {
	arena := core.NewArena()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentActive}
	child := &core.Agent{ID: "c1", ParentID: "root", Tuning: []float64{0, 1, 0}, ActivationThreshold: 0.5, State: core.AgentListening}
	arena.Add(origin)
	arena.Add(child)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())
	assert.True(t, result.Unheard)
}

func TestPropagateQuarantinedOriginMarksSuspect(t *testing.T) {
	arena := core.NewArena()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentQuarantine}
	child := &core.Agent{ID: "c1", ParentID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentListening}
	arena.Add(origin)
	arena.Add(child)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())
	require.Len(t, result.Deliveries, 1)
	assert.True(t, result.Deliveries[0].Trigger.Suspect)
}

func TestPropagateMissingOriginIsNoop(t *testing.T) {
	arena := core.NewArena()
	sig := &core.Signal{OriginID: "ghost", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())
	assert.Empty(t, result.Deliveries)
}

func TestPropagateSkipsTerminatedAgent(t *testing.T) {
	arena := core.NewArena()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.5, State: core.AgentActive}
	dead := &core.Agent{ID: "dead", ParentID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.1, State: core.AgentTerminated}
	grandchild := &core.Agent{ID: "gc", ParentID: "dead", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.1, State: core.AgentListening}
	arena.Add(origin)
	arena.Add(dead)
	arena.Add(grandchild)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 1.0, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())
	// dead is skipped for delivery but its subtree is still walked so
	// grandchild, reachable only through dead, is still visited.
	ids := map[string]bool{}
	for _, d := range result.Deliveries {
		ids[d.AgentID] = true
	}
	assert.False(t, ids["dead"])
	assert.True(t, ids["gc"])
}

func TestPropagateMinAmplitudeFloorIsNoOp(t *testing.T) {
	// spec §8: a signal with amplitude <= min_amplitude is a no-op on delivery.
	arena := core.NewArena()
	origin := &core.Agent{ID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.01, State: core.AgentActive}
	child := &core.Agent{ID: "c1", ParentID: "root", Tuning: []float64{1, 0, 0}, ActivationThreshold: 0.01, State: core.AgentListening}
	arena.Add(origin)
	arena.Add(child)

	sig := &core.Signal{OriginID: "root", Direction: core.Downward, Amplitude: 0.1, Frequency: []float64{1, 0, 0}}
	result := Propagate(arena, sig, baseConfig())
	assert.Empty(t, result.Deliveries)
}

package lifecycle

import (
	"testing"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFamily() *core.Arena {
	arena := core.NewArena()
	gp := &core.Agent{ID: "gp", WebID: "w", State: core.AgentActive, Health: 1.0}
	x := &core.Agent{ID: "x", ParentID: "gp", WebID: "w", State: core.AgentIsolated, Health: 0.1, Purpose: "x"}
	y := &core.Agent{ID: "y", ParentID: "x", WebID: "w", State: core.AgentListening, Health: 0.9}
	z := &core.Agent{ID: "z", ParentID: "x", WebID: "w", State: core.AgentListening, Health: 0.1}
	arena.Add(gp)
	arena.Add(x)
	arena.Add(y)
	arena.Add(z)
	return arena
}

func TestCascadeReparentsHealthyChild(t *testing.T) {
	// Scenario 6 of spec §8: X (unhealthy) winds down; healthy child Y is
	// reparented to X's parent (GP); unhealthy child Z cascades; X terminates.
	arena := buildFamily()
	cfg := core.DefaultConfig()

	outcomes := Cascade(arena, "x", cfg, "x failed")

	x, _ := arena.Get("x")
	y, _ := arena.Get("y")
	z, _ := arena.Get("z")

	assert.Equal(t, core.AgentTerminated, x.State)
	assert.Equal(t, "gp", y.ParentID)
	assert.NotEqual(t, core.AgentTerminated, y.State)
	assert.Equal(t, core.AgentTerminated, z.State)

	require.Len(t, outcomes, 2) // x and z both terminated
	assert.Equal(t, "x", outcomes[0].AgentID)
	assert.Equal(t, "z", outcomes[1].AgentID)
}

func TestCascadeEmitsUpwardSignalToParent(t *testing.T) {
	arena := buildFamily()
	cfg := core.DefaultConfig()
	outcomes := Cascade(arena, "x", cfg, "boom")
	require.NotEmpty(t, outcomes)
	require.NotNil(t, outcomes[0].UpwardSignal)
	assert.Equal(t, core.Upward, outcomes[0].UpwardSignal.Direction)
}

func TestCascadeRootHasNoUpwardSignal(t *testing.T) {
	arena := core.NewArena()
	root := &core.Agent{ID: "root", WebID: "w", State: core.AgentIsolated, Health: 0.05}
	arena.Add(root)
	cfg := core.DefaultConfig()
	outcomes := Cascade(arena, "root", cfg, "root failed")
	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].UpwardSignal)
}

func TestCascadeHealthyAgentNoChildrenEquivalentToDirectTermination(t *testing.T) {
	// spec §8: "Applying wind-down to a healthy agent with no children is
	// equivalent to direct termination."
	arena := core.NewArena()
	parent := &core.Agent{ID: "p", WebID: "w", State: core.AgentActive, Health: 1.0}
	solo := &core.Agent{ID: "solo", ParentID: "p", WebID: "w", State: core.AgentIsolated, Health: 0.9}
	arena.Add(parent)
	arena.Add(solo)
	cfg := core.DefaultConfig()

	outcomes := Cascade(arena, "solo", cfg, "done")
	require.Len(t, outcomes, 1)
	assert.Equal(t, core.AgentTerminated, solo.State)
	assert.Empty(t, outcomes[0].ReparentedTo)
}

func TestCascadeWritesMemoryEntryWithTuning(t *testing.T) {
	arena := core.NewArena()
	a := &core.Agent{ID: "a", WebID: "w", State: core.AgentIsolated, Health: 0.1, Tuning: []float64{1, 0, 0}, Purpose: "p"}
	arena.Add(a)
	cfg := core.DefaultConfig()
	outcomes := Cascade(arena, "a", cfg, "failed hard")
	require.Len(t, outcomes, 1)
	assert.Equal(t, core.WebMemoryFailure, outcomes[0].MemoryEntry.Pattern)
	assert.Equal(t, []float64{1, 0, 0}, outcomes[0].MemoryEntry.Tuning)
}

func TestCascadeReparentsWithinMaxDepth(t *testing.T) {
	arena := core.NewArena()
	gp := &core.Agent{ID: "gp", WebID: "w", State: core.AgentActive, Health: 1.0}
	x := &core.Agent{ID: "x", ParentID: "gp", WebID: "w", State: core.AgentIsolated, Health: 0.1}
	y := &core.Agent{ID: "y", ParentID: "x", WebID: "w", State: core.AgentListening, Health: 0.9}
	arena.Add(gp)
	arena.Add(x)
	arena.Add(y)

	cfg := core.DefaultConfig()
	cfg.MaxDepth = 10

	outcomes := Cascade(arena, "x", cfg, "x failed")
	yAgent, _ := arena.Get("y")
	require.Len(t, outcomes, 1)
	assert.Equal(t, "gp", yAgent.ParentID)
}

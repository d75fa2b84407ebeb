package coordination

import (
	"time"

	"github.com/Pharbi/arachnid/internal/core"
)

// checkConvergence implements spec §4.7 step 7. Mutates web.State in place
// when either terminal condition holds; leaves web.State untouched (stays
// Running) otherwise. pending is the signal queue carried into the next
// tick; an empty queue means every signal emitted this tick has already
// been delivered.
func checkConvergence(web *core.Web, arena *core.Arena, pending []*core.Signal, now time.Time) {
	if web.IsTerminal() {
		return
	}

	root, hasRoot := arena.Get(web.RootAgentID)
	noActive := countActive(arena) == 0
	noPending := len(pending) == 0
	rootProducedOutput := hasRoot && root.ExecutionCount > 0
	rootCollapsed := hasRoot && root.Health < web.Config.WinddownThreshold
	ageExceeded := web.Config.MaxDuration > 0 && now.Sub(web.CreatedAt) > web.Config.MaxDuration
	deadEnd := noActive && noPending && (!hasRoot || !rootProducedOutput)

	if rootCollapsed || ageExceeded {
		web.State = core.WebFailed
		return
	}

	if noActive && noPending && rootProducedOutput {
		web.State = core.WebConverged
		return
	}

	if deadEnd {
		web.State = core.WebFailed
	}
}

// Package coordination implements the top-level tick loop of spec §4.7: it
// is the single-owner driver that advances one Web's state by one logical
// tick, wiring together the propagator, spawn protocol, health/drift
// updates, validation scheduler, and lifecycle manager. The propagator,
// resonance and lifecycle code operate on a core.Arena in memory without
// I/O; the spawn protocol's embedding call and the validation scheduler's
// LLM call run when this package invokes them, and capability execution
// and event emission happen here directly.
package coordination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/health"
	"github.com/Pharbi/arachnid/internal/lifecycle"
	"github.com/Pharbi/arachnid/internal/propagation"
	"github.com/Pharbi/arachnid/internal/scheduler"
	"github.com/Pharbi/arachnid/internal/spawn"
	"github.com/Pharbi/arachnid/internal/telemetry"
	"github.com/google/uuid"
)

// Driver advances a single Web by one tick at a time. Concurrency within a
// tick is bounded by MaxConcurrentExecutions goroutines, grounded on the
// pool-of-workers-over-a-queue idiom this codebase uses elsewhere, adapted
// from a perpetual dequeue loop to a per-tick fan-out/fan-in since one tick
// has a known, finite activation set (spec §9 "a pool of worker tasks
// consuming an activation queue suffices").
type Driver struct {
	Registry  *CapabilityRegistry
	Providers core.Providers
	Events    core.EventSink
	Logger    telemetry.Logger
	Metrics   *telemetry.Metrics

	// MaxConcurrentExecutions bounds how many capability executions run in
	// parallel within one tick (spec §5 "executions run concurrently ...
	// the driver awaits their completion at the end of each tick").
	MaxConcurrentExecutions int
}

// NewDriver returns a Driver with sane defaults for its optional fields.
func NewDriver(registry *CapabilityRegistry, providers core.Providers) *Driver {
	return &Driver{
		Registry:                registry,
		Providers:               providers,
		Events:                  core.DiscardEvents,
		Logger:                  telemetry.NoOp(),
		Metrics:                 telemetry.NewMetrics(),
		MaxConcurrentExecutions: 16,
	}
}

// execOutcome is one completed (or failed-to-run) capability execution,
// paired with the trigger that caused it, for post-execution processing.
type execOutcome struct {
	agent   *core.Agent
	trigger *core.Signal
	result  core.ExecutionResult
	err     error // non-nil means CapabilityFailure (spec §7), not a semantic Failed
}

// Tick runs one full coordination cycle (spec §4.7 steps 1-7) over arena
// and pending, mutating both in place. pending is consumed: processed
// signals are dropped; newly emitted signals (from executions, spawns, and
// wind-down cascades) are appended for the caller to persist and redeliver
// on the next tick. Returns the updated Web (state possibly transitioned to
// Converged/Failed) and the carry-over signal queue.
func (d *Driver) Tick(ctx context.Context, web *core.Web, arena *core.Arena, pending []*core.Signal, memory []*core.WebMemoryEntry) (*core.Web, []*core.Signal, []*core.WebMemoryEntry, error) {
	cfg := &web.Config
	now := time.Now()

	// Step 1: timer sweep.
	for _, tr := range lifecycle.SweepTimers(arena, cfg, now) {
		d.emitStateChange(web.ID, tr)
	}

	// Step 2: deliver signals in FIFO (creation time, then id) order.
	sortSignalsFIFO(pending)
	var carry []*core.Signal
	triggers := make(map[string]*core.Signal)

	for _, sig := range pending {
		result := propagation.Propagate(arena, sig, cfg)
		// A signal that only reached agents already Active is not
		// consumed: its content must be redelivered once the recipient
		// returns to Listening (spec §5 concurrency invariant) — the
		// pending-signal queue itself is the only buffer this driver has
		// for that, so leaving Processed false hands it back next tick.
		sig.Processed = !result.BlockedByActive

		for _, del := range result.Deliveries {
			d.Metrics.SignalDelivered(web.ID)
			d.Events.Emit(core.Event{
				Type: core.EventSignalDelivered, WebID: web.ID, Timestamp: now,
				Data: map[string]interface{}{"agent_id": del.AgentID, "eff": del.Verdict.Eff, "activated": del.Activated},
			})
			if del.Activated {
				triggers[del.AgentID] = del.Trigger
			}
		}
		if result.Unheard {
			d.Metrics.SignalUnheard(web.ID)
		}
	}

	// Step 3: execute every agent currently Active — whether activated by
	// this tick's deliveries or already Active entering the tick (the root
	// starts Active at web creation with the task injection as its trigger,
	// per spec §4.4) — concurrently, at most one execution per agent.
	var activated []*core.Agent
	for _, a := range arena.All() {
		if a.State == core.AgentActive {
			activated = append(activated, a)
		}
	}
	outcomes := d.executeAll(ctx, web, arena, activated, triggers)

	// Step 4: post-execution bookkeeping.
	var spawnRequests []spawn.Request
	for _, oc := range outcomes {
		d.applyPostExecution(web, cfg, oc, &carry, &spawnRequests)
	}

	// Spawn protocol for every Need emitted this tick.
	for _, req := range spawnRequests {
		outcome, err := spawn.Run(ctx, arena, cfg, d.Providers.Embedding, memory, req)
		if err != nil {
			d.Logger.Warn("spawn embedding failed", map[string]interface{}{"error": err.Error(), "requester": req.RequesterID})
			continue
		}
		d.applySpawnOutcome(web, req, outcome, arena, &carry, &memory)
	}

	// Step 5: validation.
	pendingValidations := d.collectPendingValidations(outcomes)
	if len(pendingValidations) > 0 {
		scheduled, err := scheduler.Run(ctx, pendingValidations, cfg, arena.LivingCount(), d.Providers.LLM)
		if err != nil {
			d.Logger.Warn("validation round failed", map[string]interface{}{"error": err.Error()})
		}
		for _, o := range scheduled {
			if o.Record == nil {
				continue
			}
			d.Metrics.Validation(web.ID, string(o.Record.Judgment))
			d.Events.Emit(core.Event{
				Type: core.EventValidationCompleted, WebID: web.ID, Timestamp: now,
				Data: map[string]interface{}{"agent_id": o.Record.TargetID, "judgment": string(o.Record.Judgment)},
			})
		}
	}

	// Step 6: lifecycle transitions + wind-down cascades.
	for _, agent := range arena.All() {
		if agent.State.IsTerminal() {
			continue
		}
		tr := lifecycle.ApplyHealthTransitions(agent, cfg)
		if tr.From == tr.To {
			continue
		}
		d.emitStateChange(web.ID, tr)
		if tr.To == core.AgentWindingDown {
			cascadeOutcomes := lifecycle.Cascade(arena, agent.ID, cfg, fmt.Sprintf("agent %s wound down", agent.ID))
			for _, co := range cascadeOutcomes {
				d.Metrics.AgentTerminated(web.ID)
				memory = append(memory, co.MemoryEntry)
				if co.UpwardSignal != nil {
					carry = append(carry, draftToSignal(web.ID, co.AgentID, *co.UpwardSignal, now))
				}
			}
		}
	}

	d.Metrics.TickProcessed(web.ID)
	d.Metrics.SetActiveAgents(web.ID, countActive(arena))
	web.TickSeq++

	// Step 7: convergence check.
	checkConvergence(web, arena, carry, now)
	if web.State == core.WebConverged {
		d.Metrics.WebConverged()
		d.Events.Emit(core.Event{Type: core.EventWebConverged, WebID: web.ID, Timestamp: now})
	} else if web.State == core.WebFailed {
		d.Metrics.WebFailed()
		d.Events.Emit(core.Event{Type: core.EventWebFailed, WebID: web.ID, Timestamp: now})
	}

	return web, carry, memory, nil
}

// executeAll runs every activated agent's capability concurrently, bounded
// by MaxConcurrentExecutions, and awaits completion before returning
// (spec §5: "the driver awaits their completion at the end of each tick").
func (d *Driver) executeAll(ctx context.Context, web *core.Web, arena *core.Arena, activated []*core.Agent, triggers map[string]*core.Signal) []execOutcome {
	outcomes := make([]execOutcome, len(activated))
	sem := make(chan struct{}, max(1, d.MaxConcurrentExecutions))
	var wg sync.WaitGroup

	for i, agent := range activated {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, agent *core.Agent) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = d.execute(ctx, web, agent, triggers[agent.ID])
		}(i, agent)
	}
	wg.Wait()
	return outcomes
}

// execute runs one agent's capability with panic recovery, grounded on the
// executeHandler pattern this codebase uses for its background task workers.
// trigger is the signal that activated agent this tick, or nil when agent
// entered the tick already Active (the root's first tick: its trigger is
// the task injection, not a propagated signal).
func (d *Driver) execute(ctx context.Context, web *core.Web, agent *core.Agent, trigger *core.Signal) (outcome execOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = execOutcome{agent: agent, err: fmt.Errorf("%w: capability %q panicked: %v", core.ErrCapabilityFailure, agent.Capability, r)}
		}
	}()

	fn, ok := d.Registry.Lookup(agent.Capability)
	if !ok {
		return execOutcome{agent: agent, err: fmt.Errorf("%w: no capability registered for tag %q", core.ErrCapabilityFailure, agent.Capability)}
	}

	if trigger == nil {
		trigger = &core.Signal{OriginID: agent.ID, Frequency: agent.Tuning, Content: web.Task}
	}

	ec := core.ExecutionContext{
		AgentID: agent.ID, WebID: web.ID, Purpose: agent.Purpose,
		Knowledge: agent.Context.KnowledgeItems, Warnings: agent.Context.FailureWarnings,
		Capability: agent.Capability,
	}
	coreTrigger := core.Trigger{
		SignalID: trigger.ID, Frequency: trigger.Frequency, Content: trigger.Content,
		Amplitude: trigger.Amplitude, Suspect: trigger.Suspect,
	}

	result, err := fn(ctx, ec, coreTrigger, d.Providers)
	if err != nil {
		return execOutcome{agent: agent, trigger: trigger, err: fmt.Errorf("%w: %v", core.ErrCapabilityFailure, err)}
	}
	return execOutcome{agent: agent, trigger: trigger, result: result}
}

// applyPostExecution implements spec §4.7 step 4 for one outcome.
func (d *Driver) applyPostExecution(web *core.Web, cfg *core.Config, oc execOutcome, carry *[]*core.Signal, spawnRequests *[]spawn.Request) {
	agent := oc.agent
	now := time.Now()

	if oc.err != nil {
		agent.Context.FailureWarnings = append(agent.Context.FailureWarnings, oc.err.Error())
		agent.Context.AppendKnowledge("execution failed: " + oc.err.Error())
		agent.State = core.AgentListening
		agent.LastActiveAt = now
		return
	}

	agent.ExecutionCount++
	if oc.result.Output != "" {
		agent.Context.AppendKnowledge(oc.result.Output)
	}

	for _, draft := range oc.result.Signals {
		*carry = append(*carry, draftToSignal(web.ID, agent.ID, draft, now))
		d.Events.Emit(core.Event{Type: core.EventSignalEmitted, WebID: web.ID, Timestamp: now,
			Data: map[string]interface{}{"origin": agent.ID}})
	}

	for _, need := range oc.result.Needs {
		*spawnRequests = append(*spawnRequests, spawn.Request{
			RequesterID: agent.ID, WebID: web.ID, Need: need, DefaultThreshold: cfg.DefaultThreshold,
		})
	}

	if oc.result.Status != core.StatusFailed && oc.trigger != nil {
		health.Drift(agent, cfg, oc.trigger.Frequency)
	}

	agent.State = core.AgentListening
	agent.LastActiveAt = now
}

// applySpawnOutcome turns a spawn.Outcome into arena mutations and events.
func (d *Driver) applySpawnOutcome(web *core.Web, req spawn.Request, outcome spawn.Outcome, arena *core.Arena, carry *[]*core.Signal, memory *[]*core.WebMemoryEntry) {
	now := time.Now()
	switch {
	case outcome.Reused:
		*carry = append(*carry, draftToSignal(web.ID, req.RequesterID, *outcome.ReuseSignal, now))
	case outcome.Refused:
		d.Metrics.SpawnRefused(web.ID, outcome.RefusalReason)
		// spec §4.3 step 3: a spawn refusal emits a Failed need into web
		// memory, so a later agent with a similarly-tuned need is warned
		// before it spawns rather than repeating the same refused request.
		entry := core.WebMemoryEntry{
			WebID:   web.ID,
			Pattern: core.WebMemoryFailure,
			Purpose: req.Need.Description,
			Summary: fmt.Sprintf("spawn refused (%s): %s", outcome.RefusalReason, req.Need.Description),
		}
		if requester, ok := arena.Get(req.RequesterID); ok {
			entry.Tuning = append([]float64(nil), requester.Tuning...)
		}
		*memory = append(*memory, &entry)
	case outcome.Child != nil:
		outcome.Child.ID = uuid.NewString()
		arena.Add(outcome.Child)
		d.Metrics.AgentSpawned(web.ID)
		d.Events.Emit(core.Event{Type: core.EventAgentSpawned, WebID: web.ID, Timestamp: now,
			Data: map[string]interface{}{"agent_id": outcome.Child.ID, "parent_id": req.RequesterID}})
		if outcome.KickSignal != nil {
			*carry = append(*carry, draftToSignal(web.ID, outcome.Child.ID, *outcome.KickSignal, now))
		}
	}
}

// collectPendingValidations builds the scheduler's input from this tick's
// successfully-run (non-CapabilityFailure) executions.
func (d *Driver) collectPendingValidations(outcomes []execOutcome) []scheduler.PendingResult {
	var pending []scheduler.PendingResult
	for _, oc := range outcomes {
		if oc.err != nil || oc.result.Output == "" {
			continue
		}
		impact := oc.result.DeclaredImpact
		if impact <= 0 {
			impact = d.Registry.Impact(oc.agent.Capability)
		}
		pending = append(pending, scheduler.PendingResult{
			Agent:               oc.agent,
			Output:              oc.result.Output,
			DeclaredImpact:      impact,
			DeclaredUncertainty: oc.result.DeclaredUncertainty,
			ExecutionContext:    core.ExecutionContext{AgentID: oc.agent.ID, WebID: oc.agent.WebID, Purpose: oc.agent.Purpose},
		})
	}
	return pending
}

func (d *Driver) emitStateChange(webID string, tr lifecycle.Transition) {
	d.Metrics.HealthTransition(webID, string(tr.From), string(tr.To))
	d.Events.Emit(core.Event{
		Type: core.EventAgentStateChanged, WebID: webID, Timestamp: time.Now(),
		Data: map[string]interface{}{"agent_id": tr.AgentID, "from": string(tr.From), "to": string(tr.To)},
	})
}

func draftToSignal(webID, originID string, draft core.SignalDraft, now time.Time) *core.Signal {
	return &core.Signal{
		ID:        uuid.NewString(),
		WebID:     webID,
		OriginID:  originID,
		Frequency: draft.Frequency,
		Content:   draft.Content,
		Amplitude: draft.Amplitude,
		Direction: draft.Direction,
		Payload:   draft.Payload,
		CreatedAt: now,
	}
}

func sortSignalsFIFO(signals []*core.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if !signals[i].CreatedAt.Equal(signals[j].CreatedAt) {
			return signals[i].CreatedAt.Before(signals[j].CreatedAt)
		}
		return signals[i].ID < signals[j].ID
	})
}

func countActive(arena *core.Arena) int {
	n := 0
	for _, a := range arena.All() {
		if a.State == core.AgentActive {
			n++
		}
	}
	return n
}

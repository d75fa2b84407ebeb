package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Pharbi/arachnid/internal/core"
)

// Declared impact constants for the validation scheduler's priority formula
// (spec §4.6), registered alongside each capability tag in the coordination
// loop's CapabilityRegistry.
const (
	ImpactSummarize   = 0.3
	ImpactCodeWrite   = 0.7
	ImpactCodeExecute = 0.9
	ImpactSearch      = 0.4
	ImpactGeneric     = 0.5
)

// Summarize asks the LLM provider to condense the trigger content plus the
// agent's accumulated knowledge into a short summary (spec §9 example
// capability set).
func Summarize(ctx context.Context, ec core.ExecutionContext, trigger core.Trigger, prov core.Providers) (core.ExecutionResult, error) {
	if prov.LLM == nil {
		return core.ExecutionResult{}, fmt.Errorf("%w: no LLM provider configured", core.ErrCapabilityFailure)
	}
	prompt := fmt.Sprintf("Purpose: %s\n\nContent to summarize:\n%s\n\nKnown so far:\n%s",
		ec.Purpose, trigger.Content, strings.Join(ec.Knowledge, "\n"))
	out, err := prov.LLM.Complete(ctx, prompt, "Summarize concisely for a downstream collaborator.", 0.2)
	if err != nil {
		return core.ExecutionResult{}, err
	}
	return core.ExecutionResult{Status: core.StatusComplete, Output: out, DeclaredImpact: ImpactSummarize}, nil
}

// CodeWrite asks the LLM provider to produce source code for the agent's
// purpose, returning it as an artifact rather than inline prose output.
func CodeWrite(ctx context.Context, ec core.ExecutionContext, trigger core.Trigger, prov core.Providers) (core.ExecutionResult, error) {
	if prov.LLM == nil {
		return core.ExecutionResult{}, fmt.Errorf("%w: no LLM provider configured", core.ErrCapabilityFailure)
	}
	prompt := fmt.Sprintf("Purpose: %s\n\nRequest:\n%s", ec.Purpose, trigger.Content)
	code, err := prov.LLM.Complete(ctx, prompt, "Write only the code, no commentary.", 0.3)
	if err != nil {
		return core.ExecutionResult{}, err
	}
	return core.ExecutionResult{
		Status:         core.StatusComplete,
		Output:         "code written for: " + ec.Purpose,
		Artifacts:      map[string]string{"code": code},
		DeclaredImpact: ImpactCodeWrite,
	}, nil
}

// CodeExecute reviews a previously written code artifact for obvious
// incompleteness rather than actually executing it: this runtime has no
// sandboxed execution environment, so "execution" here is a static
// completeness check a validator can escalate on. A real deployment would
// swap this capability for one that shells out to a sandboxed runner; the
// dispatch-table shape (spec §9) makes that swap a registration change,
// not a core-engine change.
func CodeExecute(ctx context.Context, ec core.ExecutionContext, trigger core.Trigger, prov core.Providers) (core.ExecutionResult, error) {
	code := trigger.Content
	if code == "" {
		return core.ExecutionResult{
			Status: core.StatusNeedsMore,
			Reason: "no code artifact present to review",
		}, nil
	}
	if strings.Contains(code, "TODO") || strings.TrimSpace(code) == "" {
		return core.ExecutionResult{
			Status: core.StatusFailed,
			Reason: "code artifact incomplete",
		}, nil
	}
	return core.ExecutionResult{
		Status:         core.StatusComplete,
		Output:         "code artifact reviewed, no incompleteness markers found",
		DeclaredImpact: ImpactCodeExecute,
	}, nil
}

// Search delegates to the optional SearchProvider (spec §6.3: capabilities,
// never the core engine, call SearchProvider directly).
func Search(ctx context.Context, ec core.ExecutionContext, trigger core.Trigger, prov core.Providers) (core.ExecutionResult, error) {
	if prov.Search == nil {
		return core.ExecutionResult{}, fmt.Errorf("%w: no search provider configured", core.ErrCapabilityFailure)
	}
	results, err := prov.Search.Search(ctx, trigger.Content)
	if err != nil {
		return core.ExecutionResult{}, err
	}
	return core.ExecutionResult{
		Status:         core.StatusComplete,
		Output:         strings.Join(results, "\n"),
		DeclaredImpact: ImpactSearch,
	}, nil
}

// Generic is the fallback capability for an agent with no specialized tag:
// it asks the LLM to address its purpose directly against the trigger.
func Generic(ctx context.Context, ec core.ExecutionContext, trigger core.Trigger, prov core.Providers) (core.ExecutionResult, error) {
	if prov.LLM == nil {
		return core.ExecutionResult{}, fmt.Errorf("%w: no LLM provider configured", core.ErrCapabilityFailure)
	}
	prompt := fmt.Sprintf("Purpose: %s\n\nTrigger:\n%s", ec.Purpose, trigger.Content)
	out, err := prov.LLM.Complete(ctx, prompt, "Respond directly and concisely.", 0.5)
	if err != nil {
		return core.ExecutionResult{}, err
	}
	return core.ExecutionResult{Status: core.StatusComplete, Output: out, DeclaredImpact: ImpactGeneric}, nil
}

// Register wires every capability in this file into registry under its
// conventional tag, matching the tags the spawn protocol's
// Need.SuggestedCapability field is expected to use.
func Register(registry interface {
	Register(tag string, impact float64, fn core.Capability)
}) {
	registry.Register("summarize", ImpactSummarize, Summarize)
	registry.Register("code-write", ImpactCodeWrite, CodeWrite)
	registry.Register("code-execute", ImpactCodeExecute, CodeExecute)
	registry.Register("search", ImpactSearch, Search)
	registry.Register("generic", ImpactGeneric, Generic)
}

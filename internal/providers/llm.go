// Package providers implements the concrete EmbeddingProvider/LLMProvider
// collaborators and the capability dispatch table (spec §6.2, §6.3, §9).
package providers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/telemetry"
)

// AnthropicLLM implements core.LLMProvider against the Anthropic Messages
// API, circuit-broken with sony/gobreaker the way this codebase's
// resilience package wraps outbound provider calls — adapted here to a
// library breaker instead of the hand-rolled CircuitBreaker type, since
// the pool already depends on sony/gobreaker for exactly this purpose.
type AnthropicLLM struct {
	client  anthropic.Client
	model   anthropic.Model
	breaker *gobreaker.CircuitBreaker[string]
	logger  telemetry.Logger
}

// AnthropicLLMOptions configures AnthropicLLM as a plain options struct
// passed to NewAnthropicLLM.
type AnthropicLLMOptions struct {
	APIKey  string
	Model   anthropic.Model
	Logger  telemetry.Logger
	Breaker gobreaker.Settings
}

// NewAnthropicLLM builds an AnthropicLLM with sane circuit-breaker defaults:
// open after 5 consecutive failures, half-open retest after 30s.
func NewAnthropicLLM(opts AnthropicLLMOptions) *AnthropicLLM {
	model := opts.Model
	if model == "" {
		model = anthropic.ModelClaude3_5SonnetLatest
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NoOp()
	}

	settings := opts.Breaker
	if settings.Name == "" {
		settings.Name = "anthropic-llm"
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}

	return &AnthropicLLM{
		client:  anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:   model,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

// Complete implements core.LLMProvider.
func (a *AnthropicLLM) Complete(ctx context.Context, prompt, systemPrompt string, temperature float32) (string, error) {
	return a.breaker.Execute(func() (string, error) {
		params := anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
			Temperature: anthropic.Float(float64(temperature)),
		}
		if systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
		}

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			a.logger.Warn("anthropic completion failed", map[string]interface{}{"error": err.Error()})
			return "", fmt.Errorf("%w: %v", core.ErrProviderTimeout, err)
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
}

// validationSystemPrompt instructs the model to judge a capability's output
// against its declared purpose (spec §4.5's Confirm/Challenge/Uncertain
// semantics).
const validationSystemPrompt = `You are validating whether an autonomous agent's output actually accomplishes its stated purpose.
Respond with exactly one word on the first line: Confirm, Challenge, or Uncertain.
On the second line, give a confidence between 0 and 1.
On the third line, give a one-sentence reason.`

// Validate implements core.LLMProvider's validation hook (spec §4.5/§6.3).
func (a *AnthropicLLM) Validate(ctx context.Context, output string, ec core.ExecutionContext) (core.Judgment, float64, string, error) {
	prompt := fmt.Sprintf("Purpose: %s\n\nOutput:\n%s", ec.Purpose, output)
	raw, err := a.Complete(ctx, prompt, validationSystemPrompt, 0)
	if err != nil {
		return core.JudgmentUncertain, 0, "", err
	}
	return parseValidation(raw)
}

func parseValidation(raw string) (core.Judgment, float64, string, error) {
	lines := strings.SplitN(strings.TrimSpace(raw), "\n", 3)
	judgment := core.JudgmentUncertain
	if len(lines) > 0 {
		switch strings.TrimSpace(lines[0]) {
		case "Confirm":
			judgment = core.JudgmentConfirm
		case "Challenge":
			judgment = core.JudgmentChallenge
		}
	}
	var confidence float64
	if len(lines) > 1 {
		fmt.Sscanf(strings.TrimSpace(lines[1]), "%f", &confidence)
	}
	reason := ""
	if len(lines) > 2 {
		reason = strings.TrimSpace(lines[2])
	}
	return judgment, confidence, reason, nil
}

// ContentHash returns the same SHA-256 hex digest as health.ContentHash, for
// capabilities that need to tag an output before emitting it as a
// validation target.
func ContentHash(output string) string {
	sum := sha256.Sum256([]byte(output))
	return fmt.Sprintf("%x", sum)
}

package core

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tuning knob of spec §6.5. It supports three-layer
// configuration priority: defaults (lowest) → environment variables
// (medium) → functional options (highest), matching the pattern the rest
// of this codebase's ambient stack uses for configuration.
type Config struct {
	Dimension int `json:"dimension"`

	AttenuationFactor float64 `json:"attenuation_factor"`
	MinAmplitude      float64 `json:"min_amplitude"`
	DefaultThreshold  float64 `json:"default_threshold"`

	MaxAgents int `json:"max_agents"`
	MaxDepth  int `json:"max_depth"`

	IdleTimeout  time.Duration `json:"idle_timeout_secs"`
	DormantTTL   time.Duration `json:"dormant_ttl_secs"`
	MaxDuration  time.Duration `json:"max_duration_secs"`

	TuningDriftAlpha  float64 `json:"tuning_drift_alpha"`
	TuningDriftWindow int     `json:"tuning_drift_window"`

	HealthBoostConfirm     float64 `json:"health_boost_confirm"`
	HealthPenaltyChallenge float64 `json:"health_penalty_challenge"`
	RepeatChallengePenalty float64 `json:"repeat_challenge_penalty"`
	ProbationPeriod        int     `json:"probation_period"`

	QuarantineThreshold float64 `json:"quarantine_threshold"`
	IsolationThreshold  float64 `json:"isolation_threshold"`
	WinddownThreshold   float64 `json:"winddown_threshold"`
	RecoveryThreshold   float64 `json:"recovery_threshold"`

	// ValidationBudgetDivisor computes the per-tick validation budget as
	// ceil(active_agents / ValidationBudgetDivisor) (spec §4.6, default 4).
	ValidationBudgetDivisor int `json:"validation_budget_divisor"`
}

// DefaultConfig returns the §6.5 defaults.
func DefaultConfig() *Config {
	return &Config{
		Dimension:               8,
		AttenuationFactor:       0.8,
		MinAmplitude:            0.1,
		DefaultThreshold:        0.6,
		MaxAgents:               100,
		MaxDepth:                10,
		IdleTimeout:             30 * time.Second,
		DormantTTL:              600 * time.Second,
		MaxDuration:             30 * time.Minute,
		TuningDriftAlpha:        0.8,
		TuningDriftWindow:       15,
		HealthBoostConfirm:      0.05,
		HealthPenaltyChallenge:  0.15,
		RepeatChallengePenalty:  0.05,
		ProbationPeriod:         5,
		QuarantineThreshold:     0.6,
		IsolationThreshold:      0.4,
		WinddownThreshold:       0.2,
		RecoveryThreshold:       0.65,
		ValidationBudgetDivisor: 4,
	}
}

// Option mutates a Config during construction.
type Option func(*Config)

func WithDimension(d int) Option                 { return func(c *Config) { c.Dimension = d } }
func WithAttenuationFactor(f float64) Option     { return func(c *Config) { c.AttenuationFactor = f } }
func WithMinAmplitude(f float64) Option          { return func(c *Config) { c.MinAmplitude = f } }
func WithDefaultThreshold(f float64) Option      { return func(c *Config) { c.DefaultThreshold = f } }
func WithMaxAgents(n int) Option                 { return func(c *Config) { c.MaxAgents = n } }
func WithMaxDepth(n int) Option                  { return func(c *Config) { c.MaxDepth = n } }
func WithIdleTimeout(d time.Duration) Option     { return func(c *Config) { c.IdleTimeout = d } }
func WithDormantTTL(d time.Duration) Option      { return func(c *Config) { c.DormantTTL = d } }
func WithMaxDuration(d time.Duration) Option     { return func(c *Config) { c.MaxDuration = d } }
func WithTuningDriftAlpha(f float64) Option      { return func(c *Config) { c.TuningDriftAlpha = f } }
func WithTuningDriftWindow(n int) Option         { return func(c *Config) { c.TuningDriftWindow = n } }
func WithProbationPeriod(n int) Option           { return func(c *Config) { c.ProbationPeriod = n } }

// NewConfig assembles a Config from defaults, then environment variables,
// then functional options, in that priority order (lowest to highest).
func NewConfig(opts ...Option) (*Config, error) {
	c := DefaultConfig()
	c.loadFromEnv()
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadFromEnv overlays ARACHNID_-prefixed environment variables onto the
// defaults, matching the env-override convention the ambient stack uses
// elsewhere in this codebase.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("ARACHNID_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dimension = n
		}
	}
	if v := os.Getenv("ARACHNID_MAX_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAgents = n
		}
	}
	if v := os.Getenv("ARACHNID_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v := os.Getenv("ARACHNID_ATTENUATION_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.AttenuationFactor = f
		}
	}
	if v := os.Getenv("ARACHNID_MIN_AMPLITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinAmplitude = f
		}
	}
	if v := os.Getenv("ARACHNID_DEFAULT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DefaultThreshold = f
		}
	}
}

// Validate enforces the ConfigurationInvalid class of errors (spec §7):
// out-of-range thresholds and nonsensical knobs are fatal at web creation.
func (c *Config) Validate() error {
	if c.Dimension <= 0 {
		return NewError("Config.Validate", "config", fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig))
	}
	if c.DefaultThreshold <= 0 || c.DefaultThreshold >= 1 {
		return NewError("Config.Validate", "config", ErrThresholdOutOfRange)
	}
	if c.AttenuationFactor <= 0 || c.AttenuationFactor >= 1 {
		return NewError("Config.Validate", "config", fmt.Errorf("%w: attenuation_factor must be in (0,1)", ErrInvalidConfig))
	}
	if c.MinAmplitude <= 0 || c.MinAmplitude >= 1 {
		return NewError("Config.Validate", "config", fmt.Errorf("%w: min_amplitude must be in (0,1)", ErrInvalidConfig))
	}
	if c.MaxAgents < 1 {
		return NewError("Config.Validate", "config", fmt.Errorf("%w: max_agents must be >= 1", ErrInvalidConfig))
	}
	if c.MaxDepth < 1 {
		return NewError("Config.Validate", "config", fmt.Errorf("%w: max_depth must be >= 1", ErrInvalidConfig))
	}
	if c.QuarantineThreshold <= c.IsolationThreshold || c.IsolationThreshold <= c.WinddownThreshold {
		return NewError("Config.Validate", "config",
			fmt.Errorf("%w: expected quarantine > isolation > winddown thresholds", ErrInvalidConfig))
	}
	if c.RecoveryThreshold <= c.QuarantineThreshold {
		return NewError("Config.Validate", "config",
			fmt.Errorf("%w: recovery_threshold must exceed quarantine_threshold", ErrInvalidConfig))
	}
	return nil
}

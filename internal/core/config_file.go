package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML files, expressing duration knobs as
// plain seconds the way core/config.go's env-tag convention names its own
// duration fields (*_secs). Zero fields are treated as "not set in the
// file" and left at whatever the layer below already had.
type fileConfig struct {
	Dimension               int     `yaml:"dimension"`
	AttenuationFactor       float64 `yaml:"attenuation_factor"`
	MinAmplitude            float64 `yaml:"min_amplitude"`
	DefaultThreshold        float64 `yaml:"default_threshold"`
	MaxAgents               int     `yaml:"max_agents"`
	MaxDepth                int     `yaml:"max_depth"`
	IdleTimeoutSecs         int     `yaml:"idle_timeout_secs"`
	DormantTTLSecs          int     `yaml:"dormant_ttl_secs"`
	MaxDurationSecs         int     `yaml:"max_duration_secs"`
	TuningDriftAlpha        float64 `yaml:"tuning_drift_alpha"`
	TuningDriftWindow       int     `yaml:"tuning_drift_window"`
	HealthBoostConfirm      float64 `yaml:"health_boost_confirm"`
	HealthPenaltyChallenge  float64 `yaml:"health_penalty_challenge"`
	RepeatChallengePenalty  float64 `yaml:"repeat_challenge_penalty"`
	ProbationPeriod         int     `yaml:"probation_period"`
	QuarantineThreshold     float64 `yaml:"quarantine_threshold"`
	IsolationThreshold      float64 `yaml:"isolation_threshold"`
	WinddownThreshold       float64 `yaml:"winddown_threshold"`
	RecoveryThreshold       float64 `yaml:"recovery_threshold"`
	ValidationBudgetDivisor int     `yaml:"validation_budget_divisor"`
}

// NewConfigFromFile assembles a Config the way NewConfig does, but inserts
// an optional YAML file layer between defaults and environment variables:
// defaults -> file -> environment -> functional options, lowest to
// highest priority. An empty path skips the file layer entirely.
func NewConfigFromFile(path string, opts ...Option) (*Config, error) {
	c := DefaultConfig()
	if path != "" {
		fc, err := readFileConfig(path)
		if err != nil {
			return nil, err
		}
		applyFileConfig(c, fc)
	}
	c.loadFromEnv()
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return fc, nil
}

func applyFileConfig(c *Config, fc fileConfig) {
	if fc.Dimension != 0 {
		c.Dimension = fc.Dimension
	}
	if fc.AttenuationFactor != 0 {
		c.AttenuationFactor = fc.AttenuationFactor
	}
	if fc.MinAmplitude != 0 {
		c.MinAmplitude = fc.MinAmplitude
	}
	if fc.DefaultThreshold != 0 {
		c.DefaultThreshold = fc.DefaultThreshold
	}
	if fc.MaxAgents != 0 {
		c.MaxAgents = fc.MaxAgents
	}
	if fc.MaxDepth != 0 {
		c.MaxDepth = fc.MaxDepth
	}
	if fc.IdleTimeoutSecs != 0 {
		c.IdleTimeout = time.Duration(fc.IdleTimeoutSecs) * time.Second
	}
	if fc.DormantTTLSecs != 0 {
		c.DormantTTL = time.Duration(fc.DormantTTLSecs) * time.Second
	}
	if fc.MaxDurationSecs != 0 {
		c.MaxDuration = time.Duration(fc.MaxDurationSecs) * time.Second
	}
	if fc.TuningDriftAlpha != 0 {
		c.TuningDriftAlpha = fc.TuningDriftAlpha
	}
	if fc.TuningDriftWindow != 0 {
		c.TuningDriftWindow = fc.TuningDriftWindow
	}
	if fc.HealthBoostConfirm != 0 {
		c.HealthBoostConfirm = fc.HealthBoostConfirm
	}
	if fc.HealthPenaltyChallenge != 0 {
		c.HealthPenaltyChallenge = fc.HealthPenaltyChallenge
	}
	if fc.RepeatChallengePenalty != 0 {
		c.RepeatChallengePenalty = fc.RepeatChallengePenalty
	}
	if fc.ProbationPeriod != 0 {
		c.ProbationPeriod = fc.ProbationPeriod
	}
	if fc.QuarantineThreshold != 0 {
		c.QuarantineThreshold = fc.QuarantineThreshold
	}
	if fc.IsolationThreshold != 0 {
		c.IsolationThreshold = fc.IsolationThreshold
	}
	if fc.WinddownThreshold != 0 {
		c.WinddownThreshold = fc.WinddownThreshold
	}
	if fc.RecoveryThreshold != 0 {
		c.RecoveryThreshold = fc.RecoveryThreshold
	}
	if fc.ValidationBudgetDivisor != 0 {
		c.ValidationBudgetDivisor = fc.ValidationBudgetDivisor
	}
}

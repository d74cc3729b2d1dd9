// Package config defines evaluator configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config populated with defaults.
// - Load layers a YAML file and GENIE_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the status API listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Hotkey is this evaluator's identity in the registry.
	Hotkey string `koanf:"hotkey" validate:"required"`

	// DataDir holds the reputation database. Empty keeps state in memory.
	DataDir string `koanf:"data_dir"`

	// GenesisUnix is the wall-clock second at which block zero was produced.
	GenesisUnix int64 `koanf:"genesis_unix" validate:"gte=0"`

	// Chain timing.
	BlockInSeconds           int    `koanf:"block_in_seconds" validate:"gt=0"`
	SessionWindowBlocks      uint64 `koanf:"session_window_blocks" validate:"gt=0"`
	MaxEvaluators            int    `koanf:"max_evaluators" validate:"gt=0"`
	PerEvaluatorPeriodBlocks uint64 `koanf:"per_evaluator_period_blocks" validate:"gte=2"`
	SetWeightsPeriodBlocks   uint64 `koanf:"set_weights_period_blocks" validate:"gt=0"`

	// Commit-reveal timing.
	RevealDelayMS   int `koanf:"reveal_delay_ms" validate:"gte=0"`
	RevealTimeoutMS int `koanf:"reveal_timeout_ms" validate:"gt=0"`
	TaskTimeoutMS   int `koanf:"task_timeout_ms" validate:"gt=0"`

	// Queue bounds.
	MaxSyntheticTaskSize  int `koanf:"max_synthetic_task_size" validate:"gt=0"`
	MaxPendingScoringSize int `koanf:"max_pending_scoring_size" validate:"gt=0"`

	// DecayFactor is the reputation moving-average coefficient d in w' = d*w + (1-d)*s.
	DecayFactor float64 `koanf:"decay_factor" validate:"gte=0,lt=1"`

	// SynthesisPerSecond caps the synthesize loop. Zero disables the limiter.
	SynthesisPerSecond float64 `koanf:"synthesis_per_second" validate:"gte=0"`

	// MaxFanout bounds concurrent solver calls per phase.
	MaxFanout int `koanf:"max_fanout" validate:"gt=0"`

	// RegistrySyncMS is the registry resync interval.
	RegistrySyncMS int `koanf:"registry_sync_ms" validate:"gt=0"`

	// Solvers maps solver identities to their endpoint base URLs.
	Solvers map[string]string `koanf:"solvers" validate:"dive,keys,required,endkeys,url"`

	// Evaluators lists evaluator hotkeys in registry order.
	Evaluators []string `koanf:"evaluators" validate:"dive,required"`

	// KindWeights maps competition kind to metric weights.
	KindWeights map[string]map[string]float64 `koanf:"kind_weights" validate:"required,dive,keys,oneof=accuracy quality seo,endkeys,dive,gte=0"`

	// MetricEndpoints maps a metric name to a remote scoring URL. Metrics
	// without an endpoint use the built-in heuristic.
	MetricEndpoints map[string]string `koanf:"metric_endpoints" validate:"dive,url"`

	// DatasetDir contains html/png pairs used for synthetic tasks. Empty uses the built-in set.
	DatasetDir string `koanf:"dataset_dir"`

	// Archive settings.
	ArchiveDir       string `koanf:"archive_dir"`
	ArchiveRetention int    `koanf:"archive_retention" validate:"gte=0"`
	InfluxURL        string `koanf:"influx_url" validate:"omitempty,url"`
	InfluxToken      string `koanf:"influx_token"`
	InfluxOrg        string `koanf:"influx_org" validate:"required_with=InfluxURL"`
	InfluxBucket     string `koanf:"influx_bucket" validate:"required_with=InfluxURL"`

	// PublishURL receives weight vectors. Empty logs them instead.
	PublishURL string `koanf:"publish_url" validate:"omitempty,url"`

	// TracingEnabled installs the stdout span exporter.
	TracingEnabled bool `koanf:"tracing_enabled"`

	// AllowedPlaceholders lists resource references accepted in revealed markup.
	AllowedPlaceholders []string `koanf:"allowed_placeholders"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		Hotkey:                   "evaluator-0",
		BlockInSeconds:           12,
		SessionWindowBlocks:      180,
		MaxEvaluators:            12,
		PerEvaluatorPeriodBlocks: 10,
		SetWeightsPeriodBlocks:   50,
		RevealDelayMS:            5_000,
		RevealTimeoutMS:          30_000,
		TaskTimeoutMS:            60_000,
		MaxSyntheticTaskSize:     10,
		MaxPendingScoringSize:    10,
		DecayFactor:              0.9,
		SynthesisPerSecond:       1,
		MaxFanout:                64,
		RegistrySyncMS:           60_000,
		Solvers:                  map[string]string{},
		Evaluators:               []string{"evaluator-0"},
		KindWeights: map[string]map[string]float64{
			"accuracy": {"visual_accuracy": 0.8, "structural_quality": 0.1, "discoverability": 0.1},
			"quality":  {"visual_accuracy": 0.3, "structural_quality": 0.6, "discoverability": 0.1},
			"seo":      {"visual_accuracy": 0.3, "structural_quality": 0.1, "discoverability": 0.6},
		},
		MetricEndpoints:     map[string]string{},
		ArchiveRetention:    1_000,
		AllowedPlaceholders: []string{"rick.jpg", "placeholder.jpg", "placeholder.png", "https://placehold.co/"},
	}
}

// RevealDelay returns the extra wait between commit timeout and reveal.
func (c *Config) RevealDelay() time.Duration {
	return time.Duration(c.RevealDelayMS) * time.Millisecond
}

// RevealTimeout returns the reveal phase timeout.
func (c *Config) RevealTimeout() time.Duration {
	return time.Duration(c.RevealTimeoutMS) * time.Millisecond
}

// TaskTimeout returns the commit phase timeout assigned to synthetic tasks.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMS) * time.Millisecond
}

// RegistrySyncInterval returns the registry resync interval.
func (c *Config) RegistrySyncInterval() time.Duration {
	return time.Duration(c.RegistrySyncMS) * time.Millisecond
}

// BlockDuration returns the wall-clock length of one block.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(c.BlockInSeconds) * time.Second
}

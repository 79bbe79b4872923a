// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config defines the process configuration for docwiki, loaded
// from environment variables with an optional YAML overlay, per §6's
// "Configuration (environment-provided)" list.
package config

import "errors"

// Config is the top-level configuration struct. Field tags use
// mapstructure for viper unmarshalling.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Store      StoreConfig      `mapstructure:"store"`
	RepoRoot   string           `mapstructure:"repo_root"`
	Log        LogConfig        `mapstructure:"log"`
}

// ProviderConfig selects and configures the LLM Gateway's upstream.
type ProviderConfig struct {
	Type          string `mapstructure:"type"` // openai|azure|anthropic
	Endpoint      string `mapstructure:"endpoint"`
	APIKey        string `mapstructure:"api_key"`
	ChatModel     string `mapstructure:"chat_model"`
	AnalysisModel string `mapstructure:"analysis_model"`
	AzureDeployment string `mapstructure:"azure_deployment"`
}

// PipelineConfig holds per-run knobs for the orchestrator and its stages.
type PipelineConfig struct {
	MaxParallelLeaves       int  `mapstructure:"max_parallel_leaves"`
	CodeCompression         bool `mapstructure:"code_compression"`
	EnableDependencyAnalysis bool `mapstructure:"enable_dependency_analysis"`
	UpdateIntervalDays      int  `mapstructure:"update_interval_days"`
	ToolHopCap              int  `mapstructure:"tool_hop_cap"`
}

// SchedulerConfig holds sweep cadences and concurrency bounds.
type SchedulerConfig struct {
	MaxParallelRepos     int `mapstructure:"max_parallel_repos"`
	ProcessingSweepSecs  int `mapstructure:"processing_sweep_secs"`
	UpdateSweepHours     int `mapstructure:"update_sweep_hours"`
	CleanupSweepHours    int `mapstructure:"cleanup_sweep_hours"`
	HeartbeatTimeoutSecs int `mapstructure:"heartbeat_timeout_secs"`
	FailureGraceHours    int `mapstructure:"failure_grace_hours"`
	FailureCountLimit    int `mapstructure:"failure_count_limit"`
	MaxUpdatesPerSweep   int `mapstructure:"max_updates_per_sweep"`
	RateLimitCapacity    int `mapstructure:"rate_limit_capacity"`
	RateLimitRefillSecs  int `mapstructure:"rate_limit_refill_secs"`
}

// StoreConfig configures pkg/store's embedded database.
type StoreConfig struct {
	Engine  string `mapstructure:"engine"` // sqlite|mem
	DataDir string `mapstructure:"data_dir"`
}

// LogConfig configures internal/observability's logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Validation sentinel errors.
var (
	ErrInvalidProviderType       = errors.New("provider.type must be one of openai, azure, anthropic")
	ErrInvalidMaxParallelLeaves  = errors.New("pipeline.max_parallel_leaves must be positive")
	ErrInvalidToolHopCap         = errors.New("pipeline.tool_hop_cap must be positive")
	ErrInvalidMaxParallelRepos   = errors.New("scheduler.max_parallel_repos must be positive")
	ErrInvalidProcessingSweep    = errors.New("scheduler.processing_sweep_secs must be positive")
	ErrInvalidUpdateSweep        = errors.New("scheduler.update_sweep_hours must be positive")
	ErrInvalidCleanupSweep       = errors.New("scheduler.cleanup_sweep_hours must be positive")
	ErrInvalidRateLimitCapacity  = errors.New("scheduler.rate_limit_capacity must be positive")
	ErrInvalidStoreEngine        = errors.New("store.engine must be one of sqlite, mem")
)

// Validate checks Config invariants, returning the first violation found.
func (c *Config) Validate() error {
	switch c.Provider.Type {
	case "openai", "azure", "anthropic":
	default:
		return ErrInvalidProviderType
	}
	if c.Pipeline.MaxParallelLeaves <= 0 {
		return ErrInvalidMaxParallelLeaves
	}
	if c.Pipeline.ToolHopCap <= 0 {
		return ErrInvalidToolHopCap
	}
	if c.Scheduler.MaxParallelRepos <= 0 {
		return ErrInvalidMaxParallelRepos
	}
	if c.Scheduler.ProcessingSweepSecs <= 0 {
		return ErrInvalidProcessingSweep
	}
	if c.Scheduler.UpdateSweepHours <= 0 {
		return ErrInvalidUpdateSweep
	}
	if c.Scheduler.CleanupSweepHours <= 0 {
		return ErrInvalidCleanupSweep
	}
	if c.Scheduler.RateLimitCapacity <= 0 {
		return ErrInvalidRateLimitCapacity
	}
	switch c.Store.Engine {
	case "sqlite", "mem":
	default:
		return ErrInvalidStoreEngine
	}
	return nil
}

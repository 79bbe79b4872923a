// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".docwiki"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for docwiki settings,
// e.g. DOCWIKI_PROVIDER_API_KEY.
const envPrefix = "DOCWIKI"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults, in
// that increasing order of precedence (env wins, matching spec §6: "the
// exact shape... environment variables are the source of truth").
// If configPath is non-empty it names an explicit config file; otherwise
// the file is searched in the current directory and $HOME. A missing
// config file is not an error — defaults and env vars still apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("provider.type", "openai")
	v.SetDefault("provider.chat_model", "gpt-4o-mini")
	v.SetDefault("provider.analysis_model", "gpt-4o-mini")

	v.SetDefault("pipeline.max_parallel_leaves", 5)
	v.SetDefault("pipeline.code_compression", false)
	v.SetDefault("pipeline.enable_dependency_analysis", true)
	v.SetDefault("pipeline.update_interval_days", 7)
	v.SetDefault("pipeline.tool_hop_cap", 10)

	v.SetDefault("scheduler.max_parallel_repos", 5)
	v.SetDefault("scheduler.processing_sweep_secs", 30)
	v.SetDefault("scheduler.update_sweep_hours", 24)
	v.SetDefault("scheduler.cleanup_sweep_hours", 1)
	v.SetDefault("scheduler.heartbeat_timeout_secs", 600)
	v.SetDefault("scheduler.failure_grace_hours", 24)
	v.SetDefault("scheduler.failure_count_limit", 5)
	v.SetDefault("scheduler.max_updates_per_sweep", 3)
	v.SetDefault("scheduler.rate_limit_capacity", 60)
	v.SetDefault("scheduler.rate_limit_refill_secs", 60)

	v.SetDefault("store.engine", "sqlite")
	v.SetDefault("store.data_dir", "./data")

	v.SetDefault("repo_root", "./workspaces")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

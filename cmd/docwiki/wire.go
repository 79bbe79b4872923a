// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"time"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/internal/ratelimit"
	"github.com/kraklabs/docwiki/pkg/gitworkspace"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/pipeline"
	"github.com/kraklabs/docwiki/pkg/scheduler"
	"github.com/kraklabs/docwiki/pkg/store"
)

// maxTreeBytes bounds the compact directory listing §4.3 feeds into the
// classifier/outline/section prompts. Not a tunable in config.Config
// (§6 names only the knobs listed there); cmd/cie's equivalent
// tree-summary cap in pkg/ingestion is likewise a package constant, not a
// config field.
const maxTreeBytes = 64 * 1024

// buildDeps wires every long-lived component a subcommand needs from
// config.Config, the way a bootstrap routine builds its
// storage/index/embedding trio before dispatching to a subcommand.
func buildDeps() (*config.Config, *store.Store, *pipeline.Orchestrator, *scheduler.Scheduler, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	metrics := observability.Default()

	st, err := store.Open(store.Config{Engine: store.Engine(cfg.Store.Engine), DataDir: cfg.Store.DataDir, Logger: logger})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	ws := gitworkspace.New(cfg.RepoRoot, logger)

	limiter := ratelimit.NewBucket(cfg.Scheduler.RateLimitCapacity, time.Duration(cfg.Scheduler.RateLimitRefillSecs)*time.Second)
	gw, err := llmgateway.New(cfg.Provider, limiter, metrics, logger)
	if err != nil {
		st.Close()
		return nil, nil, nil, nil, fmt.Errorf("build llm gateway: %w", err)
	}

	orch := pipeline.New(pipeline.Config{
		Workspace:          ws,
		Store:              st,
		Gateway:            gw,
		Model:              cfg.Provider.ChatModel,
		MaxTreeBytes:       maxTreeBytes,
		SectionConcurrency: cfg.Pipeline.MaxParallelLeaves,
		Logger:             logger,
	})

	sched := scheduler.New(scheduler.Config{
		Store:              st,
		Processor:          orch,
		Settings:           cfg.Scheduler,
		UpdateIntervalDays: cfg.Pipeline.UpdateIntervalDays,
		Metrics:            metrics,
		Logger:             logger,
	})

	return cfg, st, orch, sched, nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package scheduler runs the three periodic sweeps of §4.12 — processing,
// update, and cleanup — against pkg/store, dispatching eligible
// repositories to a Processor (pkg/pipeline.Orchestrator in production).
// Grounded on cmd/cie/queue.go (IndexQueue, flock-based
// TryAcquireLock) for the single-leader guarantee and cmd/cie/start.go's
// long-running loop style for the sweep cadence, adapted from a one-shot
// CLI command into a resident ticker loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/store"
)

// Processor drives a single repository through the pipeline. Satisfied by
// *pkg/pipeline.Orchestrator; a narrow interface here lets tests supply an
// in-memory fake instead of standing up a real git/LLM-backed Orchestrator,
// per §6's collaborator-interface convention.
type Processor interface {
	Run(ctx context.Context, repositoryID string) error
	Update(ctx context.Context, repositoryID string) error
}

// Config wires the Scheduler's dependencies and sweep cadences.
type Config struct {
	Store              *store.Store
	Processor          Processor
	Settings           config.SchedulerConfig
	UpdateIntervalDays int // from config.PipelineConfig; §4.12's update-sweep staleness threshold
	LockPath           string // advisory flock path; empty disables the leader check
	Metrics            *observability.Metrics
	Logger             *slog.Logger
}

// Scheduler runs the three sweeps on independent tickers until its
// context is cancelled.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds a Scheduler.
func New(cfg Config) *Scheduler {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.Default()
	}
	return &Scheduler{cfg: cfg, logger: observability.OrDefault(cfg.Logger), metrics: metrics}
}

// Run acquires the single-leader lock (if configured) and runs all three
// sweeps until ctx is done. Only one Scheduler process should hold the
// lock at a time; a process that fails to acquire it returns immediately
// without error, so a second instance started by accident simply idles
// rather than double-processing repositories.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.LockPath != "" {
		lock := newFileLock(s.cfg.LockPath)
		acquired, err := lock.TryAcquire()
		if err != nil {
			return err
		}
		if !acquired {
			s.logger.Info("scheduler: another instance holds the lock, idling", "lock_path", s.cfg.LockPath)
			return nil
		}
		defer lock.Release()
	}

	processingEvery := time.Duration(s.cfg.Settings.ProcessingSweepSecs) * time.Second
	updateEvery := time.Duration(s.cfg.Settings.UpdateSweepHours) * time.Hour
	cleanupEvery := time.Duration(s.cfg.Settings.CleanupSweepHours) * time.Hour

	processingTicker := time.NewTicker(processingEvery)
	updateTicker := time.NewTicker(updateEvery)
	cleanupTicker := time.NewTicker(cleanupEvery)
	defer processingTicker.Stop()
	defer updateTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-processingTicker.C:
			s.timedSweep(ctx, "processing", s.processingSweep)
		case <-updateTicker.C:
			s.timedSweep(ctx, "update", s.updateSweep)
		case <-cleanupTicker.C:
			s.timedSweep(ctx, "cleanup", s.cleanupSweep)
		}
	}
}

func (s *Scheduler) timedSweep(ctx context.Context, name string, sweep func(context.Context) error) {
	start := time.Now()
	if err := sweep(ctx); err != nil {
		s.logger.Error("scheduler: sweep failed", "sweep", name, "error", err)
	}
	s.metrics.SchedulerSweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

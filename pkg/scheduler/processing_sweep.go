// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kraklabs/docwiki/pkg/store"
)

// processingSweep selects up to MaxParallelRepos repositories in PENDING
// or an in-flight status stuck past the heartbeat timeout, ordering
// resumable (stuck) repositories before fresh PENDING ones, and dispatches
// each to its own Processor.Run call (§4.12's "orders PROCESSING before
// PENDING (resume before start)").
func (s *Scheduler) processingSweep(ctx context.Context) error {
	limit := s.cfg.Settings.MaxParallelRepos
	if limit <= 0 {
		limit = 5
	}
	heartbeatTimeout := time.Duration(s.cfg.Settings.HeartbeatTimeoutSecs) * time.Second
	cutoff := time.Now().Add(-heartbeatTimeout)

	stuck, err := s.cfg.Store.ListStuckRepositories(ctx, cutoff)
	if err != nil {
		return err
	}

	candidates := make([]*store.Repository, 0, limit)
	candidates = append(candidates, stuck...)

	if len(candidates) < limit {
		pending, err := s.cfg.Store.ListRepositories(ctx, store.ListRepositoriesOpts{
			Status: store.StatusPending, PageSize: limit,
		})
		if err != nil {
			return err
		}
		candidates = append(candidates, pending...)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var wg sync.WaitGroup
	for _, repo := range candidates {
		wg.Add(1)
		go func(repo *store.Repository) {
			defer wg.Done()
			s.metrics.SchedulerDispatched.Inc()
			if err := s.cfg.Processor.Run(ctx, repo.ID); err != nil {
				s.logger.Warn("scheduler: processing sweep dispatch failed", "repository_id", repo.ID, "error", err)
			}
		}(repo)
	}
	wg.Wait()
	return nil
}

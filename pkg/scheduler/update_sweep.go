// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"context"
	"time"

	"github.com/kraklabs/docwiki/pkg/store"
)

// updateSweep selects COMPLETED repositories that haven't been touched in
// at least UpdateIntervalDays, caps the batch at MaxUpdatesPerSweep, and
// dispatches each to Processor.Update (§4.12).
func (s *Scheduler) updateSweep(ctx context.Context) error {
	maxUpdates := s.cfg.Settings.MaxUpdatesPerSweep
	if maxUpdates <= 0 {
		maxUpdates = 3
	}
	interval := 7 * 24 * time.Hour
	if s.cfg.UpdateIntervalDays > 0 {
		interval = time.Duration(s.cfg.UpdateIntervalDays) * 24 * time.Hour
	}
	cutoff := time.Now().Add(-interval)

	completed, err := s.cfg.Store.ListRepositories(ctx, store.ListRepositoriesOpts{
		Status: store.StatusCompleted, PageSize: 1000,
	})
	if err != nil {
		return err
	}

	dispatched := 0
	for _, repo := range completed {
		if dispatched >= maxUpdates {
			break
		}
		if repo.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.cfg.Processor.Update(ctx, repo.ID); err != nil {
			s.logger.Warn("scheduler: update sweep dispatch failed", "repository_id", repo.ID, "error", err)
		}
		dispatched++
	}
	return nil
}

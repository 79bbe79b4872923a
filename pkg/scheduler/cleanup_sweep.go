// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"context"
	"time"

	"github.com/kraklabs/docwiki/pkg/store"
)

// cleanupSweep demotes FAILED repositories older than FailureGraceHours
// back to PENDING so transient failures retry, unless the repository has
// already hit FailureCountLimit, in which case it is left FAILED as a
// terminal state (§4.12).
func (s *Scheduler) cleanupSweep(ctx context.Context) error {
	grace := time.Duration(s.cfg.Settings.FailureGraceHours) * time.Hour
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	limit := s.cfg.Settings.FailureCountLimit
	if limit <= 0 {
		limit = 5
	}
	cutoff := time.Now().Add(-grace)

	failed, err := s.cfg.Store.ListRepositories(ctx, store.ListRepositoriesOpts{
		Status: store.StatusFailed, PageSize: 1000,
	})
	if err != nil {
		return err
	}

	for _, repo := range failed {
		if repo.UpdatedAt.After(cutoff) {
			continue
		}
		if repo.FailureCount >= limit {
			continue
		}
		pendingStatus := store.StatusPending
		newCount := repo.FailureCount + 1
		if err := s.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{
			Status: &pendingStatus, FailureCount: &newCount,
		}); err != nil {
			s.logger.Warn("scheduler: cleanup sweep demotion failed", "repository_id", repo.ID, "error", err)
			continue
		}
		s.metrics.SchedulerDemoted.Inc()
	}
	return nil
}

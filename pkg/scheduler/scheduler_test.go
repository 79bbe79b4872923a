// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Engine: store.EngineMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fakeProcessor records every repository ID it's asked to Run or Update,
// standing in for pkg/pipeline.Orchestrator (§6's collaborator-interface
// convention — a dependency-free fake satisfying the same interface as the
// real, expensive-to-construct collaborator).
type fakeProcessor struct {
	mu      sync.Mutex
	ran     []string
	updated []string
	runErr  error
}

func (f *fakeProcessor) Run(ctx context.Context, repositoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, repositoryID)
	return f.runErr
}

func (f *fakeProcessor) Update(ctx context.Context, repositoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, repositoryID)
	return nil
}

func (f *fakeProcessor) ranIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

func (f *fakeProcessor) updatedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updated...)
}

func seedRepo(t *testing.T, st *store.Store, org, name string) *store.Repository {
	t.Helper()
	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: org, Name: name, Branch: "main", Address: "https://example.com/" + name + ".git",
	})
	require.NoError(t, err)
	return repo
}

func TestProcessingSweep_DispatchesStuckAndPending(t *testing.T) {
	st := newTestStore(t)
	pending := seedRepo(t, st, "acme", "pending-repo")

	stuckRepo := seedRepo(t, st, "acme", "stuck-repo")
	cloningStatus := store.StatusCloning
	require.NoError(t, st.UpdateRepository(context.Background(), stuckRepo.ID, store.RepositoryPatch{Status: &cloningStatus}))
	// Force the heartbeat far enough in the past to count as stuck.
	_, err := st.DB().Exec(`UPDATE repositories SET heartbeat_at = ? WHERE id = ?`, time.Now().Add(-time.Hour).Unix(), stuckRepo.ID)
	require.NoError(t, err)

	proc := &fakeProcessor{}
	s := New(Config{
		Store: st, Processor: proc, Metrics: observability.NewTestMetrics(),
		Settings: config.SchedulerConfig{MaxParallelRepos: 5, HeartbeatTimeoutSecs: 60},
	})

	require.NoError(t, s.processingSweep(context.Background()))

	ids := proc.ranIDs()
	require.Len(t, ids, 2)
	require.Contains(t, ids, stuckRepo.ID)
	require.Contains(t, ids, pending.ID)
}

func TestProcessingSweep_RespectsMaxParallelRepos(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedRepo(t, st, "acme", "repo-"+strconv.Itoa(i))
	}

	proc := &fakeProcessor{}
	s := New(Config{
		Store: st, Processor: proc, Metrics: observability.NewTestMetrics(),
		Settings: config.SchedulerConfig{MaxParallelRepos: 2, HeartbeatTimeoutSecs: 60},
	})

	require.NoError(t, s.processingSweep(context.Background()))
	require.Len(t, proc.ranIDs(), 2)
}

func TestUpdateSweep_DispatchesStaleCompletedRepositoriesOnly(t *testing.T) {
	st := newTestStore(t)
	stale := seedRepo(t, st, "acme", "stale")
	fresh := seedRepo(t, st, "acme", "fresh")

	completedStatus := store.StatusCompleted
	require.NoError(t, st.UpdateRepository(context.Background(), stale.ID, store.RepositoryPatch{Status: &completedStatus}))
	require.NoError(t, st.UpdateRepository(context.Background(), fresh.ID, store.RepositoryPatch{Status: &completedStatus}))

	_, err := st.DB().Exec(`UPDATE repositories SET updated_at = ? WHERE id = ?`, time.Now().Add(-10*24*time.Hour).Unix(), stale.ID)
	require.NoError(t, err)

	proc := &fakeProcessor{}
	s := New(Config{
		Store: st, Processor: proc, Metrics: observability.NewTestMetrics(),
		Settings: config.SchedulerConfig{MaxUpdatesPerSweep: 3}, UpdateIntervalDays: 7,
	})

	require.NoError(t, s.updateSweep(context.Background()))

	ids := proc.updatedIDs()
	require.Equal(t, []string{stale.ID}, ids)
}

func TestCleanupSweep_DemotesOldFailuresBelowThreshold(t *testing.T) {
	st := newTestStore(t)
	repo := seedRepo(t, st, "acme", "failed-repo")

	failedStatus := store.StatusFailed
	errMsg := "network timeout"
	require.NoError(t, st.UpdateRepository(context.Background(), repo.ID, store.RepositoryPatch{Status: &failedStatus, Error: &errMsg}))
	_, err := st.DB().Exec(`UPDATE repositories SET updated_at = ? WHERE id = ?`, time.Now().Add(-48*time.Hour).Unix(), repo.ID)
	require.NoError(t, err)

	s := New(Config{
		Store: st, Processor: &fakeProcessor{}, Metrics: observability.NewTestMetrics(),
		Settings: config.SchedulerConfig{FailureGraceHours: 24, FailureCountLimit: 5},
	})

	require.NoError(t, s.cleanupSweep(context.Background()))

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusPending, after.Status)
	require.Equal(t, 1, after.FailureCount)
}

func TestCleanupSweep_LeavesRepositoryAtFailureCountLimit(t *testing.T) {
	st := newTestStore(t)
	repo := seedRepo(t, st, "acme", "chronic-failure")

	failedStatus := store.StatusFailed
	errMsg := "disk full"
	maxedCount := 5
	require.NoError(t, st.UpdateRepository(context.Background(), repo.ID, store.RepositoryPatch{
		Status: &failedStatus, Error: &errMsg, FailureCount: &maxedCount,
	}))
	_, err := st.DB().Exec(`UPDATE repositories SET updated_at = ? WHERE id = ?`, time.Now().Add(-48*time.Hour).Unix(), repo.ID)
	require.NoError(t, err)

	s := New(Config{
		Store: st, Processor: &fakeProcessor{}, Metrics: observability.NewTestMetrics(),
		Settings: config.SchedulerConfig{FailureGraceHours: 24, FailureCountLimit: 5},
	})

	require.NoError(t, s.cleanupSweep(context.Background()))

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusFailed, after.Status)
}

func TestFileLock_SecondAcquireFailsUntilReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")

	first := newFileLock(path)
	acquired, err := first.TryAcquire()
	require.NoError(t, err)
	require.True(t, acquired)

	second := newFileLock(path)
	acquired, err = second.TryAcquire()
	require.NoError(t, err)
	require.False(t, acquired)

	first.Release()

	acquired, err = second.TryAcquire()
	require.NoError(t, err)
	require.True(t, acquired)
	second.Release()
}

func TestRun_ReturnsImmediatelyWhenLockIsHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	holder := newFileLock(path)
	acquired, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, acquired)
	defer holder.Release()

	st := newTestStore(t)
	s := New(Config{
		Store: st, Processor: &fakeProcessor{}, Metrics: observability.NewTestMetrics(),
		LockPath: path,
		Settings: config.SchedulerConfig{ProcessingSweepSecs: 1, UpdateSweepHours: 1, CleanupSweepHours: 1},
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly when the lock was already held")
	}
}

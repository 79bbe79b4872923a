// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Engine: EngineMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateRepository_DuplicateTripleWhileLive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/acme/widgets.git"}
	_, err := s.CreateRepository(ctx, in)
	require.NoError(t, err)

	_, err = s.CreateRepository(ctx, in)
	require.Error(t, err)
	werr, ok := wikierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, wikierrors.CodeDuplicate, werr.Code)
}

func TestCreateRepository_ReRegisterAfterFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/acme/widgets.git"}
	repo, err := s.CreateRepository(ctx, in)
	require.NoError(t, err)

	failed := StatusFailed
	require.NoError(t, s.UpdateRepository(ctx, repo.ID, RepositoryPatch{Status: &failed}))

	// Once the only row for the triple is FAILED, the partial unique index
	// (WHERE status <> 'FAILED') no longer blocks a second live row for the
	// same triple.
	_, err = s.db.Exec(`INSERT INTO repositories (id, organization, name, branch, address, status, heartbeat_at, created_at, updated_at)
		VALUES ('other-id', 'acme', 'widgets', 'main', 'https://example.com/acme/widgets.git', 'PENDING', 0, 0, 0)`)
	assert.NoError(t, err, "a second row for the same triple is permitted once the first is FAILED")
}

func TestReplaceCatalogForest_UniqueSlugsPerParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)

	_, err = s.ReplaceCatalogForest(ctx, repo.ID, []PlannedNode{
		{Title: "Overview"},
		{Title: "Overview"},
	})
	require.Error(t, err)
}

func TestReplaceCatalogForest_DepthLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)

	deep := PlannedNode{Title: "1", Children: []PlannedNode{{Title: "2", Children: []PlannedNode{{Title: "3", Children: []PlannedNode{
		{Title: "4", Children: []PlannedNode{{Title: "5", Children: []PlannedNode{{Title: "6"}}}}},
	}}}}}}

	_, err = s.ReplaceCatalogForest(ctx, repo.ID, []PlannedNode{deep})
	require.Error(t, err)
}

func TestCatalogForest_AllLeavesCompletedGatesDocumentCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)

	nodes, err := s.ReplaceCatalogForest(ctx, repo.ID, []PlannedNode{
		{Title: "Architecture", Children: []PlannedNode{
			{Title: "Overview"},
			{Title: "Data Model"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	all, err := s.ListCatalogNodes(ctx, repo.ID)
	require.NoError(t, err)
	leaves := Leaves(all)
	require.Len(t, leaves, 2)

	done, err := s.AllLeavesCompleted(ctx, repo.ID)
	require.NoError(t, err)
	assert.False(t, done)

	for _, leaf := range leaves {
		require.NoError(t, s.PutFileItem(ctx, FileItem{CatalogNodeID: leaf.ID, Title: leaf.Title, Content: "generated"}, nil))
	}

	done, err = s.AllLeavesCompleted(ctx, repo.ID)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPutFileItem_MarksNodeCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)

	nodes, err := s.ReplaceCatalogForest(ctx, repo.ID, []PlannedNode{{Title: "Overview"}})
	require.NoError(t, err)
	node := nodes[0]
	assert.False(t, node.IsCompleted)

	lineStart := 10
	require.NoError(t, s.PutFileItem(ctx, FileItem{CatalogNodeID: node.ID, Title: "Overview", Content: "body"}, []FileItemSource{
		{FilePath: "main.go", LineStart: &lineStart},
	}))

	item, sources, err := s.GetFileItem(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", item.Content)
	require.Len(t, sources, 1)
	assert.Equal(t, "main.go", sources[0].FilePath)

	all, err := s.ListCatalogNodes(ctx, repo.ID)
	require.NoError(t, err)
	assert.True(t, all[0].IsCompleted)
}

func TestDeleteRepository_CascadesToOwnedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureDocument(ctx, repo.ID))
	_, err = s.ReplaceCatalogForest(ctx, repo.ID, []PlannedNode{{Title: "Overview"}})
	require.NoError(t, err)
	require.NoError(t, s.AppendCommitRecord(ctx, repo.ID, "abc123", "ada", "init", time.Now()))

	require.NoError(t, s.DeleteRepository(ctx, repo.ID))

	_, err = s.GetRepository(ctx, repo.ID)
	assert.Error(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM catalog_nodes WHERE repository_id = ?`, repo.ID).Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM commit_records WHERE repository_id = ?`, repo.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestListStuckRepositories_ReturnsInFlightRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, NewRepositoryInput{Organization: "acme", Name: "widgets", Branch: "main", Address: "addr"})
	require.NoError(t, err)

	cloning := StatusCloning
	require.NoError(t, s.UpdateRepository(ctx, repo.ID, RepositoryPatch{Status: &cloning}))

	stuck, err := s.ListStuckRepositories(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, repo.ID, stuck[0].ID)
}

func TestUpdateRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	status := StatusCloning
	err := s.UpdateRepository(ctx, "does-not-exist", RepositoryPatch{Status: &status})
	require.Error(t, err)
	werr, ok := wikierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, wikierrors.CodeNotFound, werr.Code)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides shared fixtures for seeding a pkg/store
// backend in package tests across docwiki, the way the reference repo's own
// internal/testing package seeded a CozoDB backend with cie_function/
// cie_file rows for its tests.
package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/docwiki/pkg/store"
)

// SetupTestStore opens an in-memory Store and registers its cleanup.
//
// Example:
//
//	st := testing.SetupTestStore(t)
//	repo := testing.InsertTestRepository(t, st, "acme", "widgets", "main")
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(store.Config{Engine: store.EngineMemory})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// InsertTestRepository registers a Repository in PENDING status.
//
// Example:
//
//	repo := testing.InsertTestRepository(t, st, "acme", "widgets", "main")
func InsertTestRepository(t *testing.T, st *store.Store, organization, name, branch string) *store.Repository {
	t.Helper()

	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: organization,
		Name:         name,
		Branch:       branch,
		Address:      "https://example.com/" + organization + "/" + name + ".git",
	})
	if err != nil {
		t.Fatalf("failed to insert test repository: %v", err)
	}
	return repo
}

// InsertTestCatalogForest replaces a repository's catalog with a single
// flat level of nodes, one per given title, and returns the resulting
// leaves in the same order.
//
// Example:
//
//	leaves := testing.InsertTestCatalogForest(t, st, repo.ID, "Overview", "Auth")
func InsertTestCatalogForest(t *testing.T, st *store.Store, repositoryID string, titles ...string) []*store.CatalogNode {
	t.Helper()

	forest := make([]store.PlannedNode, len(titles))
	for i, title := range titles {
		forest[i] = store.PlannedNode{Title: title}
	}

	nodes, err := st.ReplaceCatalogForest(context.Background(), repositoryID, forest)
	if err != nil {
		t.Fatalf("failed to insert test catalog forest: %v", err)
	}
	return store.Leaves(nodes)
}

// InsertTestFileItem writes a completed section's markdown; PutFileItem
// marks the owning catalog node completed as part of the same write.
//
// Example:
//
//	testing.InsertTestFileItem(t, st, leaf.ID, "Overview", "# Overview\n...")
func InsertTestFileItem(t *testing.T, st *store.Store, catalogNodeID, title, content string) {
	t.Helper()

	if err := st.PutFileItem(context.Background(), store.FileItem{
		CatalogNodeID: catalogNodeID,
		Title:         title,
		Content:       content,
		Size:          len(content),
	}, nil); err != nil {
		t.Fatalf("failed to insert test file item: %v", err)
	}
}

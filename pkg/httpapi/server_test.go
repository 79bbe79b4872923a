// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dwtesting "github.com/kraklabs/docwiki/internal/testing"
	"github.com/kraklabs/docwiki/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{Engine: store.EngineMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, nil, nil), st
}

func TestCreateRepository_PersistsAndReturns201(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(createRepositoryRequest{Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git"})
	req := httptest.NewRequest(http.MethodPost, "/repository", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var repo store.Repository
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repo))
	require.Equal(t, "widgets", repo.Name)
	require.Equal(t, store.StatusPending, repo.Status)
}

func TestCreateRepository_DuplicateReturns400(t *testing.T) {
	s, st := newTestServer(t)
	_, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)

	body, _ := json.Marshal(createRepositoryRequest{Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git"})
	req := httptest.NewRequest(http.MethodPost, "/repository", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRepository_UnknownIDReturns400NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/repository/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetRepository_TransitionsToPendingAndClearsError(t *testing.T) {
	s, st := newTestServer(t)
	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	failedStatus := store.StatusFailed
	errMsg := "network timeout"
	require.NoError(t, st.UpdateRepository(context.Background(), repo.ID, store.RepositoryPatch{Status: &failedStatus, Error: &errMsg}))

	req := httptest.NewRequest(http.MethodPost, "/repository/"+repo.ID+"/reset", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusPending, after.Status)
	require.Equal(t, "", after.Error)
}

func TestDeleteRepository_Returns204AndCascades(t *testing.T) {
	s, st := newTestServer(t)
	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/repository/"+repo.ID, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = st.GetRepository(context.Background(), repo.ID)
	require.Error(t, err)
}

func TestUpdateRepository_SetsPromptAndDescription(t *testing.T) {
	s, st := newTestServer(t)
	repo, err := st.CreateRepository(context.Background(), store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	require.NoError(t, st.EnsureDocument(context.Background(), repo.ID))

	body, _ := json.Marshal(map[string]any{"prompt": "focus on the public API", "description": "a widget factory", "recommended": true})
	req := httptest.NewRequest(http.MethodPut, "/repository/"+repo.ID, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	after, err := st.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, "focus on the public API", after.Prompt)
	require.True(t, after.Recommended)

	doc, err := st.GetDocument(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Equal(t, "a widget factory", doc.Description)
}

func TestDocumentCatalog_ReturnsForestAndBranches(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	repo, err := st.CreateRepository(ctx, store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	_, err = st.CreateRepository(ctx, store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "dev", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	require.NoError(t, st.EnsureDocument(ctx, repo.ID))
	_, err = st.ReplaceCatalogForest(ctx, repo.ID, []store.PlannedNode{
		{Title: "Overview", Children: []store.PlannedNode{{Title: "Setup"}}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/document-catalog?owner=acme&name=widgets&branch=main", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp documentCatalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Forest, 1)
	require.Equal(t, "Overview", resp.Forest[0].Title)
	require.Len(t, resp.Forest[0].Children, 1)
	require.ElementsMatch(t, []string{"main", "dev"}, resp.Branches)
}

func TestDocument_ReturnsFileItemWithSources(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	repo, err := st.CreateRepository(ctx, store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	created, err := st.ReplaceCatalogForest(ctx, repo.ID, []store.PlannedNode{{Title: "Overview"}})
	require.NoError(t, err)
	require.NoError(t, st.PutFileItem(ctx, store.FileItem{
		CatalogNodeID: created[0].ID, Title: "Overview", Content: "# Overview\n",
	}, []store.FileItemSource{{FilePath: "main.go"}}))

	req := httptest.NewRequest(http.MethodGet, "/document?owner=acme&name=widgets&branch=main&path=overview", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "# Overview\n", resp.Content)
	require.Len(t, resp.Sources, 1)
	require.Equal(t, "main.go", resp.Sources[0].FilePath)
}

func TestUpdateContent_OverwritesBodyWithoutRegenerating(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	repo, err := st.CreateRepository(ctx, store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	created, err := st.ReplaceCatalogForest(ctx, repo.ID, []store.PlannedNode{{Title: "Overview"}})
	require.NoError(t, err)
	require.NoError(t, st.PutFileItem(ctx, store.FileItem{CatalogNodeID: created[0].ID, Title: "Overview", Content: "old"}, nil))

	body, _ := json.Marshal(updateContentRequest{Content: "new content"})
	req := httptest.NewRequest(http.MethodPut, "/content/"+created[0].ID, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	item, _, err := st.GetFileItem(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, "new content", item.Content)
}

func TestExport_ReturnsZipOfCompletedLeaves(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	repo, err := st.CreateRepository(ctx, store.NewRepositoryInput{
		Organization: "acme", Name: "widgets", Branch: "main", Address: "https://example.com/widgets.git",
	})
	require.NoError(t, err)
	created, err := st.ReplaceCatalogForest(ctx, repo.ID, []store.PlannedNode{{Title: "Overview"}})
	require.NoError(t, err)
	require.NoError(t, st.PutFileItem(ctx, store.FileItem{CatalogNodeID: created[0].ID, Title: "Overview", Content: "# hi"}, nil))

	req := httptest.NewRequest(http.MethodGet, "/export/"+repo.ID, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	require.NotZero(t, rec.Body.Len())
}

func TestExport_ReturnsZipOfCompletedLeaves_WithSharedFixtures(t *testing.T) {
	st := dwtesting.SetupTestStore(t)
	s := New(st, nil, nil)

	repo := dwtesting.InsertTestRepository(t, st, "acme", "gadgets", "main")
	leaves := dwtesting.InsertTestCatalogForest(t, st, repo.ID, "Overview", "Auth")
	dwtesting.InsertTestFileItem(t, st, leaves[0].ID, "Overview", "# Overview")
	dwtesting.InsertTestFileItem(t, st, leaves[1].ID, "Auth", "# Auth")

	req := httptest.NewRequest(http.MethodGet, "/export/"+repo.ID, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	require.NotZero(t, rec.Body.Len())
}

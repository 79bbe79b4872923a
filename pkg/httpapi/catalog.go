// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"net/http"

	"github.com/kraklabs/docwiki/pkg/store"
)

func (s *Server) repositoryFromQuery(r *http.Request) (*store.Repository, error) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if owner == "" {
		owner = q.Get("organization")
	}
	branch := q.Get("branch")
	if branch == "" {
		branch = "main"
	}
	return s.store.GetRepositoryByTriple(r.Context(), owner, q.Get("name"), branch)
}

// catalogNodeView is the forest shape GET /document-catalog returns: a
// CatalogNode plus its nested children, built from the store's flat,
// parent-before-child listing.
type catalogNodeView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Prompt      string             `json:"prompt"`
	IsCompleted bool               `json:"is_completed"`
	Children    []*catalogNodeView `json:"children,omitempty"`
}

func buildForest(nodes []*store.CatalogNode) []*catalogNodeView {
	byID := make(map[string]*catalogNodeView, len(nodes))
	var roots []*catalogNodeView
	for _, n := range nodes {
		byID[n.ID] = &catalogNodeView{ID: n.ID, Title: n.Title, Slug: n.Slug, Prompt: n.Prompt, IsCompleted: n.IsCompleted}
	}
	for _, n := range nodes {
		view := byID[n.ID]
		if n.ParentID == "" {
			roots = append(roots, view)
			continue
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			roots = append(roots, view)
			continue
		}
		parent.Children = append(parent.Children, view)
	}
	return roots
}

type documentCatalogResponse struct {
	Repository      *store.Repository  `json:"repository"`
	Forest          []*catalogNodeView `json:"forest"`
	CompletedLeaves int                `json:"completed_leaves"`
	TotalLeaves     int                `json:"total_leaves"`
	Branches        []string           `json:"branches"`
}

func (s *Server) handleDocumentCatalog(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repositoryFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	nodes, err := s.store.ListCatalogNodes(r.Context(), repo.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.GetDocument(r.Context(), repo.ID)
	completed, total := 0, 0
	if err == nil {
		completed, total = doc.CompletedLeaves, doc.TotalLeaves
	}

	siblings, err := s.store.ListRepositoriesByName(r.Context(), repo.Organization, repo.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	branches := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		branches = append(branches, sib.Branch)
	}

	writeJSON(w, http.StatusOK, documentCatalogResponse{
		Repository: repo, Forest: buildForest(nodes), CompletedLeaves: completed, TotalLeaves: total, Branches: branches,
	})
}

type documentResponse struct {
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	RequestTokens  int                    `json:"request_tokens"`
	ResponseTokens int                    `json:"response_tokens"`
	Sources        []store.FileItemSource `json:"sources"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repositoryFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	node, err := s.store.GetCatalogNodeBySlug(r.Context(), repo.ID, path)
	if err != nil {
		writeError(w, err)
		return
	}
	item, sources, err := s.store.GetFileItem(r.Context(), node.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		Title: item.Title, Content: item.Content, RequestTokens: item.RequestTokens,
		ResponseTokens: item.ResponseTokens, Sources: sources,
	})
}

type updateCatalogNodeRequest struct {
	Title  *string `json:"title"`
	Prompt *string `json:"prompt"`
}

func (s *Server) handleUpdateCatalogNode(w http.ResponseWriter, r *http.Request) {
	var req updateCatalogNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateCatalogNode(r.Context(), id, store.CatalogNodePatch{Title: req.Title, Prompt: req.Prompt}); err != nil {
		writeError(w, err)
		return
	}
	node, err := s.store.GetCatalogNode(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type updateContentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateFileItemContent(r.Context(), id, req.Content); err != nil {
		writeError(w, err)
		return
	}
	item, sources, err := s.store.GetFileItem(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		Title: item.Title, Content: item.Content, RequestTokens: item.RequestTokens,
		ResponseTokens: item.ResponseTokens, Sources: sources,
	})
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/kraklabs/docwiki/pkg/store"
)

type createRepositoryRequest struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Branch       string `json:"branch"`
	Address      string `json:"address"`
	CredUsername string `json:"cred_username"`
	CredToken    string `json:"cred_token"`
	Prompt       string `json:"prompt"`
}

func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	var req createRepositoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Branch == "" {
		req.Branch = "main"
	}

	repo, err := s.store.CreateRepository(r.Context(), store.NewRepositoryInput{
		Organization: req.Organization, Name: req.Name, Branch: req.Branch, Address: req.Address,
		CredUsername: req.CredUsername, CredToken: req.CredToken, Prompt: req.Prompt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(repo.ID)
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListRepositoriesOpts{Keyword: q.Get("keyword"), Status: store.Status(q.Get("status"))}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("page_size")); err == nil {
		opts.PageSize = pageSize
	}

	repos, err := s.store.ListRepositories(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleGetRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := s.store.GetRepository(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

type updateRepositoryRequest struct {
	Prompt      *string `json:"prompt"`
	Description *string `json:"description"`
	Recommended *bool   `json:"recommended"`
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateRepositoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Prompt != nil || req.Recommended != nil {
		if err := s.store.UpdateRepository(r.Context(), id, store.RepositoryPatch{
			Prompt: req.Prompt, Recommended: req.Recommended,
		}); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Description != nil {
		if err := s.store.SetDescription(r.Context(), id, *req.Description); err != nil {
			writeError(w, err)
			return
		}
	}

	repo, err := s.store.GetRepository(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRepository(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetRepository transitions a repository back to PENDING so the
// scheduler's processing sweep re-runs it from the clone stage (§4.11,
// §4.12). The failure count and recorded error are cleared; the catalog
// and generated content are left in place and simply get regenerated as
// stages re-run.
func (s *Server) handleResetRepository(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pendingStatus := store.StatusPending
	clearedError := ""
	zeroFailures := 0
	if err := s.store.UpdateRepository(r.Context(), id, store.RepositoryPatch{
		Status: &pendingStatus, Error: &clearedError, FailureCount: &zeroFailures, RefreshHeartbeat: true,
	}); err != nil {
		writeError(w, err)
		return
	}
	repo, err := s.store.GetRepository(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(repo.ID)
	writeJSON(w, http.StatusOK, repo)
}

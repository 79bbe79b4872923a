// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"net/http"
)

type overviewResponse struct {
	Overview    string `json:"overview"`
	Description string `json:"description"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repositoryFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.GetDocument(r.Context(), repo.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{Overview: doc.Overview, Description: doc.Description})
}

func (s *Server) handleMiniMap(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repositoryFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.GetDocument(r.Context(), repo.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if doc.MiniMapJSON == "" {
		w.Write([]byte(`{}`))
		return
	}
	// MiniMapJSON is already-validated JSON (pkg/overview parses before
	// storing), so it's written through verbatim rather than round-tripped.
	w.Write([]byte(doc.MiniMapJSON))
}

type changeLogEntry struct {
	Branch      string `json:"branch"`
	Hash        string `json:"hash"`
	Author      string `json:"author"`
	Message     string `json:"message"`
	CommittedAt int64  `json:"committed_at"`
}

func (s *Server) handleChangeLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if owner == "" {
		owner = q.Get("organization")
	}
	name := q.Get("name")

	repos, err := s.store.ListRepositoriesByName(r.Context(), owner, name)
	if err != nil {
		writeError(w, err)
		return
	}

	var entries []changeLogEntry
	for _, repo := range repos {
		records, err := s.store.ListCommitRecords(r.Context(), repo.ID, 0)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, rec := range records {
			entries = append(entries, changeLogEntry{
				Branch: repo.Branch, Hash: rec.Hash, Author: rec.Author,
				Message: rec.Message, CommittedAt: rec.CommittedAt.Unix(),
			})
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

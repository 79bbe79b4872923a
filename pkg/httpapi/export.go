// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"archive/zip"
	"fmt"
	"net/http"

	"github.com/kraklabs/docwiki/pkg/store"
)

// handleExport writes a ZIP of every FileItem's markdown for a
// repository (§6 GET /export/{id}), one entry per completed leaf, path
// named after the node's slug.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	repo, err := s.store.GetRepository(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := s.store.ListCatalogNodes(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s-%s.zip"`, repo.Organization, repo.Name, repo.Branch))

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, leaf := range store.Leaves(nodes) {
		if !leaf.IsCompleted {
			continue
		}
		item, _, err := s.store.GetFileItem(r.Context(), leaf.ID)
		if err != nil {
			continue
		}
		f, err := zw.Create(leaf.Slug + ".md")
		if err != nil {
			continue
		}
		_, _ = f.Write([]byte(item.Content))
	}
}

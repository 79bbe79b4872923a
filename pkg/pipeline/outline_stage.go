// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"

	"github.com/kraklabs/docwiki/pkg/outline"
	"github.com/kraklabs/docwiki/pkg/store"
)

// runOutline drives CLASSIFIED -> OUTLINED (§4.11).
func (o *Orchestrator) runOutline(ctx context.Context, repo *store.Repository) error {
	localPath := o.cfg.Workspace.LocalPath(repo.Organization, repo.Name, repo.Branch)
	readme := readReadme(localPath)

	meta := outline.RepoMeta{Organization: repo.Organization, Name: repo.Name, Branch: repo.Branch}
	if _, err := outline.Plan(ctx, o.cfg.Gateway, o.cfg.Store, repo.ID, o.cfg.Model, labelOf(repo), meta, repo.TreeListing, readme); err != nil {
		return o.fail(ctx, repo.ID, err)
	}

	if err := o.cfg.Store.EnsureDocument(ctx, repo.ID); err != nil {
		return err
	}

	outlinedStatus := store.StatusOutlined
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{Status: &outlinedStatus}); err != nil {
		return err
	}
	return nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"

	"github.com/kraklabs/docwiki/pkg/gitworkspace"
	"github.com/kraklabs/docwiki/pkg/store"
)

// Update re-syncs an already COMPLETED repository against upstream
// (§4.11's incremental update): it pulls new commits, and if any file a
// leaf's sources touched changed, marks that leaf incomplete so the next
// Run call regenerates only the affected subset. Classification is never
// revisited. The Overview always regenerates, since new commits can
// change the narrative even when no leaf's source files moved (e.g. a
// renamed top-level module, a new top-level directory).
func (o *Orchestrator) Update(ctx context.Context, repositoryID string) error {
	repo, err := o.cfg.Store.GetRepository(ctx, repositoryID)
	if err != nil {
		return err
	}
	if repo.Status != store.StatusCompleted {
		// Only a COMPLETED repository is "at rest" and eligible for an
		// update sweep; anything else is already mid-pipeline under Run.
		return nil
	}

	localPath := o.cfg.Workspace.LocalPath(repo.Organization, repo.Name, repo.Branch)
	pullResult, err := o.cfg.Workspace.Pull(ctx, localPath, repo.Version)
	if err != nil {
		return o.fail(ctx, repo.ID, err)
	}
	if len(pullResult.Commits) == 0 {
		return o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{RefreshHeartbeat: true})
	}

	delta, err := o.cfg.Workspace.DetectDelta(ctx, localPath, repo.Version, pullResult.HeadCommit)
	if err != nil {
		return o.fail(ctx, repo.ID, err)
	}

	if delta.HasChanges() {
		staleIDs, err := o.staleLeafIDs(ctx, repo.ID, delta)
		if err != nil {
			return err
		}
		if len(staleIDs) > 0 {
			if err := o.cfg.Store.MarkNodesIncomplete(ctx, staleIDs); err != nil {
				return err
			}
		}
	}

	for _, c := range pullResult.Commits {
		if err := o.cfg.Store.AppendCommitRecord(ctx, repo.ID, c.Hash, c.Author, c.Message, c.CommittedAt); err != nil {
			return err
		}
	}

	version := pullResult.HeadCommit
	generatingStatus := store.StatusGenerating
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{
		Status: &generatingStatus, Version: &version,
	}); err != nil {
		return err
	}

	return o.Run(ctx, repo.ID)
}

// staleLeafIDs finds every leaf whose recorded source files intersect the
// delta's changed paths (added, modified, deleted, or either side of a
// rename).
func (o *Orchestrator) staleLeafIDs(ctx context.Context, repositoryID string, delta *gitworkspace.Delta) ([]string, error) {
	changed := make(map[string]struct{}, len(delta.All))
	for _, p := range delta.All {
		changed[p] = struct{}{}
	}
	for from, to := range delta.Renamed {
		changed[from] = struct{}{}
		changed[to] = struct{}{}
	}

	nodes, err := o.cfg.Store.ListCatalogNodes(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, leaf := range store.Leaves(nodes) {
		if !leaf.IsCompleted {
			continue
		}
		_, sources, err := o.cfg.Store.GetFileItem(ctx, leaf.ID)
		if err != nil {
			continue
		}
		if len(sources) == 0 {
			// No recorded sources means we can't prove this leaf is
			// unaffected by the delta; regenerate it conservatively
			// (§9's incremental-update open question).
			stale = append(stale, leaf.ID)
			continue
		}
		for _, src := range sources {
			if _, ok := changed[src.FilePath]; ok {
				stale = append(stale, leaf.ID)
				break
			}
		}
	}
	return stale, nil
}

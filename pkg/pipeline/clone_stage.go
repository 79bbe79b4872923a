// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"

	"github.com/kraklabs/docwiki/pkg/gitworkspace"
	"github.com/kraklabs/docwiki/pkg/store"
)

// runClone drives PENDING/CLONING -> CLONED (§4.11).
func (o *Orchestrator) runClone(ctx context.Context, repo *store.Repository) error {
	cloningStatus := store.StatusCloning
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{Status: &cloningStatus}); err != nil {
		return err
	}

	result, err := o.cfg.Workspace.Clone(ctx, repo.Organization, repo.Name, repo.Branch, repo.Address, gitworkspace.Credentials{
		Username: repo.CredUsername,
		Token:    repo.CredToken,
	})
	if err != nil {
		return o.fail(ctx, repo.ID, err)
	}

	clonedStatus := store.StatusCloned
	version := result.HeadCommit
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{
		Status: &clonedStatus, Version: &version,
	}); err != nil {
		return err
	}

	if err := o.cfg.Store.AppendCommitRecord(ctx, repo.ID, result.HeadCommit, result.Author, result.Message, result.CommittedAt); err != nil {
		return err
	}
	return nil
}

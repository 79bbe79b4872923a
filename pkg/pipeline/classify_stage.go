// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"

	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/store"
)

// runClassify drives CLONED -> CLASSIFIED (§4.11). A Classifier error is
// non-fatal: the pipeline records LabelUnknown and continues with the
// generic prompt family rather than failing the repository.
func (o *Orchestrator) runClassify(ctx context.Context, repo *store.Repository) error {
	localPath := o.cfg.Workspace.LocalPath(repo.Organization, repo.Name, repo.Branch)

	tree, err := buildTree(localPath, o.cfg.MaxTreeBytes)
	if err != nil {
		return o.fail(ctx, repo.ID, err)
	}
	readme := readReadme(localPath)

	label, err := classifier.Classify(ctx, o.cfg.Gateway, o.cfg.Model, tree, readme)
	if err != nil {
		o.logger.Warn("pipeline: classification failed, continuing as unknown", "repository_id", repo.ID, "error", err)
		label = classifier.LabelUnknown
	}

	classifiedStatus := store.StatusClassified
	classification := string(label)
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{
		Status: &classifiedStatus, Classification: &classification, TreeListing: &tree,
	}); err != nil {
		return err
	}
	return nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"sync"

	"github.com/kraklabs/docwiki/pkg/depanalysis"
	"github.com/kraklabs/docwiki/pkg/overview"
	"github.com/kraklabs/docwiki/pkg/sectiongen"
	"github.com/kraklabs/docwiki/pkg/store"
)

// runGenerate drives OUTLINED/GENERATING -> GENERATING -> COMPLETED
// (§4.11): the Section Generator runs over all leaves concurrently with
// the Overview and Mini-Map calls, since they write disjoint fields
// (§5's ordering guarantee).
func (o *Orchestrator) runGenerate(ctx context.Context, repo *store.Repository) error {
	generatingStatus := store.StatusGenerating
	if err := o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{Status: &generatingStatus}); err != nil {
		return err
	}

	localPath := o.cfg.Workspace.LocalPath(repo.Organization, repo.Name, repo.Branch)
	readme := readReadme(localPath)
	analyzer := depanalysis.NewAnalyzer(localPath)
	label := labelOf(repo)

	var wg sync.WaitGroup
	var leafResults []sectiongen.LeafResult
	var sectionErr, overviewErr, miniMapErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		leafResults, sectionErr = sectiongen.GenerateLeaves(ctx, o.cfg.Gateway, o.cfg.Store, analyzer, o.cfg.Searcher, sectiongen.Params{
			RepositoryID: repo.ID, Model: o.cfg.Model, Label: label,
			Root: localPath, Tree: repo.TreeListing, Readme: readme, Concurrency: o.cfg.SectionConcurrency,
		})
	}()
	go func() {
		defer wg.Done()
		overviewErr = overview.GenerateOverview(ctx, o.cfg.Gateway, o.cfg.Store, repo.ID, o.cfg.Model, label, repo.TreeListing, readme)
	}()
	go func() {
		defer wg.Done()
		miniMapErr = overview.GenerateMiniMap(ctx, o.cfg.Gateway, o.cfg.Store, repo.ID, o.cfg.Model, label, repo.TreeListing, readme, o.logger)
	}()
	wg.Wait()

	for _, r := range leafResults {
		if r.Err != nil {
			o.logger.Warn("pipeline: section generation failed for leaf, will retry", "repository_id", repo.ID, "node_id", r.Node.ID, "error", r.Err)
		}
	}
	if sectionErr != nil {
		return o.fail(ctx, repo.ID, sectionErr)
	}
	if overviewErr != nil {
		return o.fail(ctx, repo.ID, overviewErr)
	}
	if miniMapErr != nil {
		return o.fail(ctx, repo.ID, miniMapErr)
	}

	if err := o.updateLeafCounts(ctx, repo.ID); err != nil {
		return err
	}

	allDone, err := o.cfg.Store.AllLeavesCompleted(ctx, repo.ID)
	if err != nil {
		return err
	}
	if !allDone {
		// Leaves remain incomplete after a failed leaf; stay in GENERATING
		// for the scheduler's next processing sweep to retry (§4.9, §4.11).
		return nil
	}

	doc, err := o.cfg.Store.GetDocument(ctx, repo.ID)
	if err != nil {
		return err
	}
	if doc.Overview == "" {
		return nil
	}

	completedStatus := store.StatusCompleted
	return o.cfg.Store.UpdateRepository(ctx, repo.ID, store.RepositoryPatch{Status: &completedStatus})
}

func (o *Orchestrator) updateLeafCounts(ctx context.Context, repositoryID string) error {
	nodes, err := o.cfg.Store.ListCatalogNodes(ctx, repositoryID)
	if err != nil {
		return err
	}
	leaves := store.Leaves(nodes)
	completed := 0
	for _, l := range leaves {
		if l.IsCompleted {
			completed++
		}
	}
	return o.cfg.Store.SetLeafCounts(ctx, repositoryID, completed, len(leaves))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pipeline runs the per-repository state machine of §4.11,
// wiring together pkg/gitworkspace, pkg/treebuilder, pkg/ignorefilter,
// pkg/classifier, pkg/outline, pkg/sectiongen, and pkg/overview. Each
// transition is a single committed pkg/store update, so the Repository
// row itself is the checkpoint: Run re-reads the row's current status
// and resumes from there rather than keeping a separate checkpoint file
// the way  pkg/ingestion/checkpoint.go does — see
// DESIGN.md for why that file was dropped instead of adapted. Grounded
// on pkg/ingestion/local_pipeline.go's staged Run method for the
// overall shape (sequential named steps, heavy logging, first-error
// abort within a stage) and pkg/ingestion/delta.go for the incremental
// update's changed-file scoping.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/internal/wikierrors"
	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/gitworkspace"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
	"github.com/kraklabs/docwiki/pkg/toolsurface"
)

// Config wires the components the Orchestrator drives.
type Config struct {
	Workspace          *gitworkspace.Workspace
	Store              *store.Store
	Gateway            *llmgateway.Gateway
	Model              string
	MaxTreeBytes       int
	SectionConcurrency int
	Searcher           toolsurface.Searcher
	Logger             *slog.Logger
}

// Orchestrator runs the §4.11 state machine for individual repositories.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New builds an Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg, logger: observability.OrDefault(cfg.Logger)}
}

// maxStageHops bounds the resume loop below so a bug that leaves a
// repository's status unchanged can't spin forever.
const maxStageHops = 8

// Run advances repositoryID through the state machine until it reaches
// COMPLETED or FAILED, re-entering at whichever stage the Repository row
// says is still incomplete (§4.11: "Restart after crash re-enters at the
// earliest stage whose outputs are incomplete").
func (o *Orchestrator) Run(ctx context.Context, repositoryID string) error {
	for hop := 0; hop < maxStageHops; hop++ {
		repo, err := o.cfg.Store.GetRepository(ctx, repositoryID)
		if err != nil {
			return err
		}

		switch repo.Status {
		case store.StatusPending, store.StatusCloning:
			if err := o.runClone(ctx, repo); err != nil {
				return err
			}
		case store.StatusCloned:
			if err := o.runClassify(ctx, repo); err != nil {
				return err
			}
		case store.StatusClassified:
			if err := o.runOutline(ctx, repo); err != nil {
				return err
			}
		case store.StatusOutlined, store.StatusGenerating:
			if err := o.runGenerate(ctx, repo); err != nil {
				return err
			}
		case store.StatusCompleted:
			return nil
		case store.StatusFailed:
			return wikierrors.New(wikierrors.KindDataIntegrity, "", "repository is in FAILED state", repo.Error, nil)
		default:
			return wikierrors.New(wikierrors.KindInternal, "", "unknown repository status", string(repo.Status), nil)
		}
	}
	return wikierrors.New(wikierrors.KindInternal, "", "pipeline did not converge within the stage hop cap", repositoryID, nil)
}

// fail records err as the Repository's terminal failure and returns it.
func (o *Orchestrator) fail(ctx context.Context, repositoryID string, err error) error {
	msg := err.Error()
	status := store.StatusFailed
	if uerr := o.cfg.Store.UpdateRepository(ctx, repositoryID, store.RepositoryPatch{
		Status: &status, Error: &msg,
	}); uerr != nil {
		o.logger.Error("pipeline: failed to record FAILED status", "repository_id", repositoryID, "error", uerr)
	}
	o.logger.Warn("pipeline: repository failed", "repository_id", repositoryID, "error", err)
	return err
}

func labelOf(repo *store.Repository) classifier.Label {
	if repo.Classification == "" {
		return classifier.LabelUnknown
	}
	return classifier.Label(repo.Classification)
}

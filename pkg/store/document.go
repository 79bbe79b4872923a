// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// Document is the per-repository aggregate holding the generated overview
// and mini-map, created once the repository reaches OUTLINED.
type Document struct {
	RepositoryID    string
	Overview        string
	Description     string
	MiniMapJSON     string
	CompletedLeaves int
	TotalLeaves     int
	UpdatedAt       time.Time
}

// EnsureDocument creates an empty Document row for a repository if one
// does not already exist (OUTLINED transition), idempotently.
func (s *Store) EnsureDocument(ctx context.Context, repositoryID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (repository_id, updated_at)
		VALUES (?, ?)
		ON CONFLICT(repository_id) DO NOTHING
	`, repositoryID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("ensure document: %w", err)
	}
	return nil
}

// GetDocument returns the Document for a repository.
func (s *Store) GetDocument(ctx context.Context, repositoryID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT repository_id, overview, description, mini_map_json, completed_leaves, total_leaves, updated_at
		FROM documents WHERE repository_id = ?
	`, repositoryID)

	var d Document
	var updated int64
	err := row.Scan(&d.RepositoryID, &d.Overview, &d.Description, &d.MiniMapJSON, &d.CompletedLeaves, &d.TotalLeaves, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "document not found", repositoryID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.UpdatedAt = time.Unix(updated, 0)
	return &d, nil
}

// SetOverview stores the generated overview text (§4.10).
func (s *Store) SetOverview(ctx context.Context, repositoryID, overview, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET overview = ?, description = ?, updated_at = ? WHERE repository_id = ?
	`, overview, description, time.Now().Unix(), repositoryID)
	if err != nil {
		return fmt.Errorf("set overview: %w", err)
	}
	return nil
}

// SetDescription overwrites a Document's description independently of
// its overview text (§6 PUT /repository/{id}'s description field).
func (s *Store) SetDescription(ctx context.Context, repositoryID, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET description = ?, updated_at = ? WHERE repository_id = ?
	`, description, time.Now().Unix(), repositoryID)
	if err != nil {
		return fmt.Errorf("set description: %w", err)
	}
	return nil
}

// SetMiniMap stores the generated mini-map JSON (§4.10). Parse failures
// are stored as an empty string by the caller, never an error.
func (s *Store) SetMiniMap(ctx context.Context, repositoryID, miniMapJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET mini_map_json = ?, updated_at = ? WHERE repository_id = ?
	`, miniMapJSON, time.Now().Unix(), repositoryID)
	if err != nil {
		return fmt.Errorf("set mini-map: %w", err)
	}
	return nil
}

// SetLeafCounts records the progress counters surfaced over the catalog
// endpoint ("a repository in GENERATING shows... whatever sections are
// already complete", §7).
func (s *Store) SetLeafCounts(ctx context.Context, repositoryID string, completed, total int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET completed_leaves = ?, total_leaves = ?, updated_at = ? WHERE repository_id = ?
	`, completed, total, time.Now().Unix(), repositoryID)
	if err != nil {
		return fmt.Errorf("set leaf counts: %w", err)
	}
	return nil
}

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

// FileItem is the generated documentation leaf attached to a completed
// CatalogNode (§3): one-to-one, created only once its section generation
// finishes.
type FileItem struct {
	CatalogNodeID  string
	Title          string
	Content        string
	RequestTokens  int
	ResponseTokens int
	Size           int
	UpdatedAt      time.Time
}

// FileItemSource is a citation into the source tree backing a FileItem's
// content, with an optional line range.
type FileItemSource struct {
	ID            string
	CatalogNodeID string
	FilePath      string
	LineStart     *int
	LineEnd       *int
}

// PutFileItem upserts the generated content for a node and marks the node
// completed in the same transaction — §3's "a node is complete only after
// its FileItem exists" is enforced here rather than left to caller
// discipline. sources replaces any previously stored citations.
func (s *Store) PutFileItem(ctx context.Context, item FileItem, sources []FileItemSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_items (catalog_node_id, title, content, request_tokens, response_tokens, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_node_id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			request_tokens = excluded.request_tokens,
			response_tokens = excluded.response_tokens,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, item.CatalogNodeID, item.Title, item.Content, item.RequestTokens, item.ResponseTokens, item.Size, now.Unix())
	if err != nil {
		return fmt.Errorf("put file item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_item_sources WHERE catalog_node_id = ?`, item.CatalogNodeID); err != nil {
		return fmt.Errorf("clear prior sources: %w", err)
	}
	for _, src := range sources {
		id := src.ID
		if id == "" {
			id = newRunID("src")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_item_sources (id, catalog_node_id, file_path, line_start, line_end)
			VALUES (?, ?, ?, ?, ?)
		`, id, item.CatalogNodeID, src.FilePath, nullableInt(src.LineStart), nullableInt(src.LineEnd))
		if err != nil {
			return fmt.Errorf("insert file item source: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE catalog_nodes SET is_completed = 1, updated_at = ? WHERE id = ?
	`, now.Unix(), item.CatalogNodeID); err != nil {
		return fmt.Errorf("mark node completed: %w", err)
	}

	return tx.Commit()
}

// UpdateFileItemContent overwrites a FileItem's body in place (§6 PUT
// /content/{id}), leaving token counts, sources, and completion state
// untouched — a manual edit doesn't re-run generation.
func (s *Store) UpdateFileItemContent(ctx context.Context, catalogNodeID, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE file_items SET content = ?, size = ?, updated_at = ? WHERE catalog_node_id = ?
	`, content, len(content), time.Now().Unix(), catalogNodeID)
	if err != nil {
		return fmt.Errorf("update file item content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "file item not found", catalogNodeID, nil)
	}
	return nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// GetFileItem returns the FileItem and its sources for a catalog node.
func (s *Store) GetFileItem(ctx context.Context, catalogNodeID string) (*FileItem, []FileItemSource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT catalog_node_id, title, content, request_tokens, response_tokens, size, updated_at
		FROM file_items WHERE catalog_node_id = ?
	`, catalogNodeID)

	var item FileItem
	var updated int64
	err := row.Scan(&item.CatalogNodeID, &item.Title, &item.Content, &item.RequestTokens, &item.ResponseTokens, &item.Size, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "file item not found", catalogNodeID, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get file item: %w", err)
	}
	item.UpdatedAt = time.Unix(updated, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, catalog_node_id, file_path, line_start, line_end
		FROM file_item_sources WHERE catalog_node_id = ? ORDER BY rowid ASC
	`, catalogNodeID)
	if err != nil {
		return nil, nil, fmt.Errorf("list file item sources: %w", err)
	}
	defer rows.Close()

	var sources []FileItemSource
	for rows.Next() {
		var src FileItemSource
		var lineStart, lineEnd sql.NullInt64
		if err := rows.Scan(&src.ID, &src.CatalogNodeID, &src.FilePath, &lineStart, &lineEnd); err != nil {
			return nil, nil, fmt.Errorf("scan file item source: %w", err)
		}
		if lineStart.Valid {
			v := int(lineStart.Int64)
			src.LineStart = &v
		}
		if lineEnd.Valid {
			v := int(lineEnd.Int64)
			src.LineEnd = &v
		}
		sources = append(sources, src)
	}
	return &item, sources, rows.Err()
}

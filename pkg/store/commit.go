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
)

// CommitRecord is an append-only changelog entry recorded against a
// repository each time the incremental-update sub-pipeline processes a new
// commit (§3, §4.11).
type CommitRecord struct {
	ID           string
	RepositoryID string
	Hash         string
	Author       string
	Message      string
	CommittedAt  time.Time
}

// AppendCommitRecord records a processed commit. CommitRecords are never
// updated or deleted except via the owning repository's cascade.
func (s *Store) AppendCommitRecord(ctx context.Context, repositoryID, hash, author, message string, committedAt time.Time) error {
	id := newRunID("commit")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commit_records (id, repository_id, hash, author, message, committed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, repositoryID, hash, author, message, committedAt.Unix())
	if err != nil {
		return fmt.Errorf("append commit record: %w", err)
	}
	return nil
}

// ListCommitRecords returns a repository's changelog, newest first.
func (s *Store) ListCommitRecords(ctx context.Context, repositoryID string, limit int) ([]*CommitRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repository_id, hash, author, message, committed_at
		FROM commit_records WHERE repository_id = ?
		ORDER BY committed_at DESC LIMIT ?
	`, repositoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("list commit records: %w", err)
	}
	defer rows.Close()

	var out []*CommitRecord
	for rows.Next() {
		var c CommitRecord
		var committed int64
		if err := rows.Scan(&c.ID, &c.RepositoryID, &c.Hash, &c.Author, &c.Message, &committed); err != nil {
			return nil, fmt.Errorf("scan commit record: %w", err)
		}
		c.CommittedAt = time.Unix(committed, 0)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// LatestCommitHash returns the most recently recorded commit hash for a
// repository, or "" if none has been recorded yet.
func (s *Store) LatestCommitHash(ctx context.Context, repositoryID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash FROM commit_records WHERE repository_id = ?
		ORDER BY committed_at DESC LIMIT 1
	`, repositoryID)
	var hash string
	if err := row.Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("latest commit hash: %w", err)
	}
	return hash, nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// Status is the Repository lifecycle state from §4.11's state machine.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusCloning    Status = "CLONING"
	StatusCloned     Status = "CLONED"
	StatusClassified Status = "CLASSIFIED"
	StatusOutlined   Status = "OUTLINED"
	StatusGenerating Status = "GENERATING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Repository is the primary aggregate of §3.
type Repository struct {
	ID             string
	Organization   string
	Name           string
	Branch         string
	Address        string
	CredUsername   string
	CredToken      string
	Status         Status
	Version        string
	Error          string
	Prompt         string
	Classification string
	TreeListing    string
	Views          int64
	Recommended    bool
	HeartbeatAt    time.Time
	FailureCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRepositoryInput is the caller-supplied data for CreateRepository.
type NewRepositoryInput struct {
	Organization string
	Name         string
	Branch       string
	Address      string
	CredUsername string
	CredToken    string
	Prompt       string
}

// CreateRepository inserts a new Repository in PENDING status. Returns a
// validation error (KindValidation, CodeDuplicate) if the (organization,
// name, branch) triple already has a non-terminally-failed row — scenario
// 6 of §8.
func (s *Store) CreateRepository(ctx context.Context, in NewRepositoryInput) (*Repository, error) {
	if in.Organization == "" || in.Name == "" || in.Branch == "" || in.Address == "" {
		return nil, wikierrors.New(wikierrors.KindValidation, "", "organization, name, branch, and address are required", "", nil)
	}

	id := repositoryID(in.Organization, in.Name, in.Branch)
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories
			(id, organization, name, branch, address, cred_username, cred_token,
			 status, prompt, heartbeat_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.Organization, in.Name, in.Branch, in.Address, in.CredUsername, in.CredToken,
		string(StatusPending), in.Prompt, now.Unix(), now.Unix(), now.Unix())
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeDuplicate,
				"repository already registered", fmt.Sprintf("%s/%s@%s is already registered and not in a terminal-failed state", in.Organization, in.Name, in.Branch), err)
		}
		return nil, fmt.Errorf("create repository: %w", err)
	}

	return s.GetRepository(ctx, id)
}

func isUniqueConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const repoColumns = `id, organization, name, branch, address, cred_username, cred_token,
	status, version, error, prompt, classification, tree_listing, views, recommended,
	heartbeat_at, failure_count, created_at, updated_at`

func scanRepository(row interface{ Scan(...any) error }) (*Repository, error) {
	var r Repository
	var credUsername, credToken sql.NullString
	var heartbeat, created, updated int64
	var status string
	var recommended int

	err := row.Scan(&r.ID, &r.Organization, &r.Name, &r.Branch, &r.Address,
		&credUsername, &credToken, &status, &r.Version, &r.Error, &r.Prompt,
		&r.Classification, &r.TreeListing, &r.Views, &recommended, &heartbeat, &r.FailureCount,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	r.CredUsername = credUsername.String
	r.CredToken = credToken.String
	r.Status = Status(status)
	r.Recommended = recommended != 0
	r.HeartbeatAt = time.Unix(heartbeat, 0)
	r.CreatedAt = time.Unix(created, 0)
	r.UpdatedAt = time.Unix(updated, 0)
	return &r, nil
}

// GetRepository returns a Repository by id, or KindValidation/CodeNotFound
// if it does not exist.
func (s *Store) GetRepository(ctx context.Context, id string) (*Repository, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id)
	repo, err := scanRepository(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "repository not found", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return repo, nil
}

// GetRepositoryByTriple looks up a Repository by its identity triple.
func (s *Store) GetRepositoryByTriple(ctx context.Context, organization, name, branch string) (*Repository, error) {
	return s.GetRepository(ctx, repositoryID(organization, name, branch))
}

// ListRepositoriesOpts filters/paginates ListRepositories.
type ListRepositoriesOpts struct {
	Page     int
	PageSize int
	Keyword  string
	Status   Status // empty means any status
}

// ListRepositories returns a page of repositories, optionally filtered by
// a keyword matched against organization/name, and by status.
func (s *Store) ListRepositories(ctx context.Context, opts ListRepositoriesOpts) ([]*Repository, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	query := `SELECT ` + repoColumns + ` FROM repositories WHERE 1=1`
	var args []any
	if opts.Keyword != "" {
		query += ` AND (organization LIKE ? OR name LIKE ?)`
		like := "%" + opts.Keyword + "%"
		args = append(args, like, like)
	}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// ListRepositoriesByName returns every branch registered under an
// (organization, name) pair, newest first — the fan-out GET
// /document-catalog and GET /change-log use to report a repository's
// other branches and cross-branch changelog.
func (s *Store) ListRepositoriesByName(ctx context.Context, organization, name string) ([]*Repository, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+repoColumns+` FROM repositories
		WHERE organization = ? AND name = ?
		ORDER BY created_at DESC`, organization, name)
	if err != nil {
		return nil, fmt.Errorf("list repositories by name: %w", err)
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// ListStuckRepositories returns repositories in an in-flight status whose
// heartbeat is older than the given timeout, for the scheduler's
// processing sweep (resume-before-start) and cleanup sweep.
func (s *Store) ListStuckRepositories(ctx context.Context, olderThan time.Time) ([]*Repository, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+repoColumns+` FROM repositories
		WHERE status IN (?, ?, ?, ?, ?) AND heartbeat_at < ?
		ORDER BY heartbeat_at ASC`,
		string(StatusCloning), string(StatusCloned), string(StatusClassified),
		string(StatusOutlined), string(StatusGenerating), olderThan.Unix())
	if err != nil {
		return nil, fmt.Errorf("list stuck repositories: %w", err)
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// RepositoryPatch is a partial update for UpdateRepository: only non-nil
// fields are written, and RefreshHeartbeat sets heartbeat_at to now.
type RepositoryPatch struct {
	Status         *Status
	Version         *string
	Error           *string
	Prompt          *string
	Classification  *string
	TreeListing     *string
	Views           *int64
	Recommended     *bool
	FailureCount    *int
	RefreshHeartbeat bool
}

// UpdateRepository applies patch to the Repository transactionally,
// matching §5's "Repository and related rows are updated transactionally
// per stage" guarantee at the single-row level.
func (s *Store) UpdateRepository(ctx context.Context, id string, patch RepositoryPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Version != nil {
		sets = append(sets, "version = ?")
		args = append(args, *patch.Version)
	}
	if patch.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *patch.Error)
	}
	if patch.Prompt != nil {
		sets = append(sets, "prompt = ?")
		args = append(args, *patch.Prompt)
	}
	if patch.Classification != nil {
		sets = append(sets, "classification = ?")
		args = append(args, *patch.Classification)
	}
	if patch.TreeListing != nil {
		sets = append(sets, "tree_listing = ?")
		args = append(args, *patch.TreeListing)
	}
	if patch.Views != nil {
		sets = append(sets, "views = ?")
		args = append(args, *patch.Views)
	}
	if patch.Recommended != nil {
		sets = append(sets, "recommended = ?")
		args = append(args, boolToInt(*patch.Recommended))
	}
	if patch.FailureCount != nil {
		sets = append(sets, "failure_count = ?")
		args = append(args, *patch.FailureCount)
	}
	if patch.RefreshHeartbeat {
		sets = append(sets, "heartbeat_at = ?")
		args = append(args, time.Now().Unix())
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE repositories SET %s WHERE id = ?`, strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "repository not found", id, nil)
	}
	return nil
}

// DeleteRepository hard-deletes a Repository and, via ON DELETE CASCADE,
// every Document/CatalogNode/FileItem/FileItemSource/CommitRecord it owns
// (§3: "hard-deleting a Repository cascades to all").
func (s *Store) DeleteRepository(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "repository not found", id, nil)
	}
	return nil
}

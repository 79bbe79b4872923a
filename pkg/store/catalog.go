// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// CatalogNode is an element of the documentation forest rooted at a
// Document (§3). ParentID is empty for a root node.
type CatalogNode struct {
	ID           string
	RepositoryID string
	ParentID     string
	Title        string
	Slug         string
	OrderIndex   int
	Prompt       string
	IsCompleted  bool
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlannedNode is the Outline Planner's output shape (§4.8): a node plus
// its children, before ids/slugs are assigned.
type PlannedNode struct {
	Title    string
	Prompt   string
	Children []PlannedNode
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ReplaceCatalogForest validates and persists a freshly planned forest,
// replacing every existing node for the repository. Every
// node is created with IsCompleted = false, per §4.8. Validation enforces
// the invariants of §8: unique slugs per parent, depth ≤ 5, and (by
// construction, since PlannedNode has no back-references) no cycles.
func (s *Store) ReplaceCatalogForest(ctx context.Context, repositoryID string, forest []PlannedNode) ([]*CatalogNode, error) {
	if err := validateForestDepth(forest, 1); err != nil {
		return nil, err
	}
	if err := validateUniqueSlugsPerParent(forest); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_nodes WHERE repository_id = ?`, repositoryID); err != nil {
		return nil, fmt.Errorf("clear prior forest: %w", err)
	}

	var created []*CatalogNode
	now := time.Now()
	var insert func(parentID, slugPrefix string, nodes []PlannedNode) error
	insert = func(parentID, slugPrefix string, nodes []PlannedNode) error {
		for i, n := range nodes {
			slug := slugPrefix + slugify(n.Title)
			id := catalogNodeID(repositoryID, slug)

			var parentArg any
			if parentID != "" {
				parentArg = parentID
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO catalog_nodes
					(id, repository_id, parent_id, title, slug, order_index, prompt, is_completed, is_deleted, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
			`, id, repositoryID, parentArg, n.Title, slug, i, n.Prompt, now.Unix(), now.Unix())
			if err != nil {
				return fmt.Errorf("insert catalog node %q: %w", n.Title, err)
			}

			created = append(created, &CatalogNode{
				ID: id, RepositoryID: repositoryID, ParentID: parentID, Title: n.Title,
				Slug: slug, OrderIndex: i, Prompt: n.Prompt, CreatedAt: now, UpdatedAt: now,
			})

			if err := insert(id, slug+"/", n.Children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := insert("", "", forest); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit forest: %w", err)
	}
	return created, nil
}

func validateForestDepth(nodes []PlannedNode, depth int) error {
	if depth > 5 {
		return wikierrors.New(wikierrors.KindDataIntegrity, wikierrors.CodePlanInvalid,
			"catalog forest exceeds maximum depth of 5", "", nil)
	}
	for _, n := range nodes {
		if err := validateForestDepth(n.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateUniqueSlugsPerParent(nodes []PlannedNode) error {
	seen := map[string]bool{}
	for _, n := range nodes {
		slug := slugify(n.Title)
		if seen[slug] {
			return wikierrors.New(wikierrors.KindDataIntegrity, wikierrors.CodePlanInvalid,
				"duplicate sibling slug in catalog forest", n.Title, nil)
		}
		seen[slug] = true
		if err := validateUniqueSlugsPerParent(n.Children); err != nil {
			return err
		}
	}
	return nil
}

const catalogColumns = `id, repository_id, parent_id, title, slug, order_index, prompt, is_completed, is_deleted, created_at, updated_at`

func scanCatalogNode(row interface{ Scan(...any) error }) (*CatalogNode, error) {
	var n CatalogNode
	var parentID sql.NullString
	var completed, deleted int
	var created, updated int64

	err := row.Scan(&n.ID, &n.RepositoryID, &parentID, &n.Title, &n.Slug, &n.OrderIndex,
		&n.Prompt, &completed, &deleted, &created, &updated)
	if err != nil {
		return nil, err
	}
	n.ParentID = parentID.String
	n.IsCompleted = completed != 0
	n.IsDeleted = deleted != 0
	n.CreatedAt = time.Unix(created, 0)
	n.UpdatedAt = time.Unix(updated, 0)
	return &n, nil
}

// ListCatalogNodes returns every non-deleted node for a repository, flat,
// ordered for deterministic depth-first traversal (parent before child,
// then order_index ascending) — the order §4.9 requires for leaf
// generation.
func (s *Store) ListCatalogNodes(ctx context.Context, repositoryID string) ([]*CatalogNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+` FROM catalog_nodes
		WHERE repository_id = ? AND is_deleted = 0
		ORDER BY order_index ASC
	`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("list catalog nodes: %w", err)
	}
	defer rows.Close()

	var out []*CatalogNode
	for rows.Next() {
		n, err := scanCatalogNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	// Rows arrive in order_index order; emit each node followed by its subtree.
	children := map[string][]*CatalogNode{}
	for _, n := range out {
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	ordered := make([]*CatalogNode, 0, len(out))
	var visit func(parentID string)
	visit = func(parentID string) {
		for _, n := range children[parentID] {
			ordered = append(ordered, n)
			visit(n.ID)
		}
	}
	visit("")
	return ordered, rows.Err()
}

// Leaves returns the nodes with no children among the given set,
// depth-first, order_index ascending (§4.9).
func Leaves(nodes []*CatalogNode) []*CatalogNode {
	hasChild := map[string]bool{}
	for _, n := range nodes {
		if n.ParentID != "" {
			hasChild[n.ParentID] = true
		}
	}
	var leaves []*CatalogNode
	for _, n := range nodes {
		if !hasChild[n.ID] {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// CatalogNodePatch is a partial update for UpdateCatalogNode.
type CatalogNodePatch struct {
	Title  *string
	Prompt *string
}

// UpdateCatalogNode renames a node and/or edits its generation prompt
// (§6 PUT /catalog/{id}). The node's slug, ordering, and completion
// state are untouched.
func (s *Store) UpdateCatalogNode(ctx context.Context, id string, patch CatalogNodePatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Prompt != nil {
		sets = append(sets, "prompt = ?")
		args = append(args, *patch.Prompt)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE catalog_nodes SET %s WHERE id = ? AND is_deleted = 0`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update catalog node: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "catalog node not found", id, nil)
	}
	return nil
}

// GetCatalogNode returns a single non-deleted node by id.
func (s *Store) GetCatalogNode(ctx context.Context, id string) (*CatalogNode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_nodes WHERE id = ? AND is_deleted = 0`, id)
	n, err := scanCatalogNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "catalog node not found", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog node: %w", err)
	}
	return n, nil
}

// GetCatalogNodeBySlug resolves a node by its full slug path within a
// repository, the lookup §6's GET /document uses (owner/name/branch/path).
func (s *Store) GetCatalogNodeBySlug(ctx context.Context, repositoryID, slug string) (*CatalogNode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+` FROM catalog_nodes
		WHERE repository_id = ? AND slug = ? AND is_deleted = 0
	`, repositoryID, slug)
	n, err := scanCatalogNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikierrors.New(wikierrors.KindValidation, wikierrors.CodeNotFound, "catalog node not found", slug, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog node by slug: %w", err)
	}
	return n, nil
}

// MarkNodeCompleted flips is_completed = true after a FileItem is
// persisted for the node (§3: "a node is complete only after its FileItem
// exists").
func (s *Store) MarkNodeCompleted(ctx context.Context, nodeID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE catalog_nodes SET is_completed = 1, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), nodeID)
	if err != nil {
		return fmt.Errorf("mark node completed: %w", err)
	}
	return nil
}

// MarkNodesIncomplete resets is_completed = false for the given nodes,
// used by the incremental-update sub-pipeline (§4.11) to force
// regeneration of affected leaves.
func (s *Store) MarkNodesIncomplete(ctx context.Context, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(nodeIDs)), ",")
	args := make([]any, 0, len(nodeIDs)+1)
	args = append(args, time.Now().Unix())
	for _, id := range nodeIDs {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE catalog_nodes SET is_completed = 0, updated_at = ? WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("mark nodes incomplete: %w", err)
	}
	return nil
}

// AllLeavesCompleted reports whether every non-deleted leaf of a
// repository has is_completed = true, the COMPLETED-transition
// precondition of §4.11/§8.
func (s *Store) AllLeavesCompleted(ctx context.Context, repositoryID string) (bool, error) {
	nodes, err := s.ListCatalogNodes(ctx, repositoryID)
	if err != nil {
		return false, err
	}
	for _, leaf := range Leaves(nodes) {
		if !leaf.IsCompleted {
			return false, nil
		}
	}
	return true, nil
}

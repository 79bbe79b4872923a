// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitworkspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// Metadata describes the current state of a local clone.
type Metadata struct {
	HeadCommit  string
	Branch      string
	Author      string
	Message     string
}

// Inspect returns the current metadata of a local clone, or nil if
// localPath is not a consistent repository (§4.1).
func (w *Workspace) Inspect(ctx context.Context, localPath string) (*Metadata, error) {
	if !w.isGitRepository(ctx, localPath) {
		return nil, nil
	}
	branch, err := w.currentBranch(ctx, localPath)
	if err != nil {
		return nil, nil
	}
	head, author, message, _, ok := w.inspectHead(ctx, localPath, branch)
	if !ok {
		return nil, nil
	}
	return &Metadata{HeadCommit: head, Branch: branch, Author: author, Message: message}, nil
}

// Branches lists all local branches known to a clone.
func (w *Workspace) Branches(ctx context.Context, localPath string) ([]string, error) {
	cmd := execGit(ctx, localPath, "branch", "--format=%(refname:short)")
	out, err := cmd.Output()
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "failed to list branches", localPath, err)
	}
	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// ReadFile returns the contents of relativePath inside a clone, or nil if
// the file does not exist. Refuses to read outside localPath (path
// traversal guard).
func (w *Workspace) ReadFile(localPath, relativePath string) ([]byte, error) {
	full := filepath.Join(localPath, relativePath)
	cleanRoot := filepath.Clean(localPath)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(filepath.Separator)) && filepath.Clean(full) != cleanRoot {
		return nil, wikierrors.New(wikierrors.KindValidation, "", "path escapes repository root", relativePath, nil)
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, wikierrors.CodeDisk, "failed to read file", relativePath, err)
	}
	return data, nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitworkspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// CloneResult is the outcome of clone (§4.1).
type CloneResult struct {
	LocalPath   string
	HeadCommit  string
	Author      string
	Message     string
	CommittedAt time.Time
	Branch      string
}

// Credentials is an optional username+token pair embedded into the clone
// URL, never logged.
type Credentials struct {
	Username string
	Token    string
}

// Clone clones address at branch into the workspace's deterministic local
// path for (organization, name, branch). If that path already holds a
// valid repository on the right branch, its current HEAD is returned
// without re-cloning; if the directory exists but is not a consistent
// repository, it is purged and re-cloned (§4.1).
func (w *Workspace) Clone(ctx context.Context, organization, name, branch, address string, creds Credentials) (*CloneResult, error) {
	if err := validateGitURL(address); err != nil {
		return nil, wikierrors.New(wikierrors.KindValidation, "", "invalid git address", err.Error(), err)
	}

	localPath := w.LocalPath(organization, name, branch)

	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		if head, author, msg, committedAt, ok := w.inspectHead(ctx, localPath, branch); ok {
			w.logger.Info("gitworkspace.clone.reuse", "path", localPath, "head", head)
			return &CloneResult{
				LocalPath: localPath, HeadCommit: head, Author: author,
				Message: msg, CommittedAt: committedAt, Branch: branch,
			}, nil
		}
		w.logger.Warn("gitworkspace.clone.inconsistent", "path", localPath)
		if err := os.RemoveAll(localPath); err != nil {
			return nil, wikierrors.New(wikierrors.KindExternalFatal, wikierrors.CodeDisk, "failed to purge inconsistent clone", localPath, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, wikierrors.CodeDisk, "failed to create workspace directory", filepath.Dir(localPath), err)
	}

	cloneURL, err := withCredentials(address, creds.Username, creds.Token)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindValidation, "", "failed to embed credentials", err.Error(), err)
	}

	w.logger.Info("gitworkspace.clone.start", "address", redactedURL(cloneURL), "branch", branch, "path", localPath)

	// #nosec G204 - address is validated by validateGitURL above.
	cmd := exec.CommandContext(ctx, "git", "clone", "--branch", branch, "--single-branch", cloneURL, localPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		kind, code := classifyCloneError(string(out))
		return nil, wikierrors.New(kind, code, "git clone failed", strings.TrimSpace(string(out)), err)
	}

	head, author, msg, committedAt, ok := w.inspectHead(ctx, localPath, branch)
	if !ok {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, wikierrors.CodeDisk, "clone succeeded but HEAD could not be inspected", localPath, nil)
	}

	w.logger.Info("gitworkspace.clone.success", "path", localPath, "head", head)
	return &CloneResult{
		LocalPath: localPath, HeadCommit: head, Author: author,
		Message: msg, CommittedAt: committedAt, Branch: branch,
	}, nil
}

// classifyCloneError maps git's stderr text to the error taxonomy clone
// must surface per §4.1: AUTH_REQUIRED, NOT_FOUND, NETWORK, or DISK.
func classifyCloneError(output string) (wikierrors.Kind, string) {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "authentication failed"), strings.Contains(lower, "permission denied"), strings.Contains(lower, "could not read username"):
		return wikierrors.KindAuth, wikierrors.CodeAuthRequired
	case strings.Contains(lower, "repository not found"), strings.Contains(lower, "does not exist"), strings.Contains(lower, "not found"):
		return wikierrors.KindExternalFatal, wikierrors.CodeNotFound
	case strings.Contains(lower, "could not resolve host"), strings.Contains(lower, "network"), strings.Contains(lower, "timed out"), strings.Contains(lower, "connection"):
		return wikierrors.KindExternalTransient, wikierrors.CodeNetwork
	case strings.Contains(lower, "no space left"), strings.Contains(lower, "disk"):
		return wikierrors.KindExternalFatal, wikierrors.CodeDisk
	default:
		return wikierrors.KindExternalTransient, wikierrors.CodeNetwork
	}
}

// inspectHead reports whether localPath is a consistent checkout of
// branch and, if so, its current HEAD metadata.
func (w *Workspace) inspectHead(ctx context.Context, localPath, branch string) (head, author, message string, committedAt time.Time, ok bool) {
	if !w.isGitRepository(ctx, localPath) {
		return "", "", "", time.Time{}, false
	}
	if branch != "" {
		current, err := w.currentBranch(ctx, localPath)
		if err != nil || current != branch {
			return "", "", "", time.Time{}, false
		}
	}
	head, err := w.resolveRef(ctx, localPath, "HEAD")
	if err != nil {
		return "", "", "", time.Time{}, false
	}
	author, message, committedAt, err = w.commitMeta(ctx, localPath, head)
	if err != nil {
		return "", "", "", time.Time{}, false
	}
	return head, author, message, committedAt, true
}

func execGit(ctx context.Context, localPath string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = localPath
	return cmd
}

func (w *Workspace) isGitRepository(ctx context.Context, localPath string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = localPath
	return cmd.Run() == nil
}

func (w *Workspace) currentBranch(ctx context.Context, localPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = localPath
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

func (w *Workspace) resolveRef(ctx context.Context, localPath, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", ref)
	cmd.Dir = localPath
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

func (w *Workspace) commitMeta(ctx context.Context, localPath, ref string) (author, message string, committedAt time.Time, err error) {
	cmd := exec.CommandContext(ctx, "git", "show", "-s", "--format=%an%n%at%n%s", ref)
	cmd.Dir = localPath
	out, err := cmd.Output()
	if err != nil {
		return "", "", time.Time{}, err
	}
	lines := strings.SplitN(strings.TrimRight(string(out), "\n"), "\n", 3)
	if len(lines) < 3 {
		return "", "", time.Time{}, errShortCommitMeta
	}
	unix, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return lines[0], lines[2], time.Unix(unix, 0), nil
}

var errShortCommitMeta = &gitMetaError{"unexpected git show output"}

type gitMetaError struct{ msg string }

func (e *gitMetaError) Error() string { return e.msg }

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitworkspace

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// CommitInfo is one entry in Pull's returned commit log.
type CommitInfo struct {
	Hash        string
	Author      string
	Message     string
	CommittedAt time.Time
}

// PullResult is the outcome of pull (§4.1).
type PullResult struct {
	Commits    []CommitInfo
	HeadCommit string
}

// defaultPullLogSize bounds how many commits pull returns when sinceCommit
// is empty or unknown to the local history.
const defaultPullLogSize = 20

// Pull fetches and fast-forwards localPath, then returns the commits
// reachable from the new HEAD but not from sinceCommit. If sinceCommit is
// empty or unknown, the most recent defaultPullLogSize commits are
// returned instead. A non-fast-forward situation yields SYNC_CONFLICT and
// leaves the worktree untouched (§4.1).
func (w *Workspace) Pull(ctx context.Context, localPath, sinceCommit string) (*PullResult, error) {
	if err := w.runGit(ctx, localPath, "fetch", "--quiet"); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, wikierrors.CodeNetwork, "git fetch failed", err.Error(), err)
	}

	if err := w.runGit(ctx, localPath, "merge", "--ff-only", "--quiet"); err != nil {
		_ = w.runGit(ctx, localPath, "merge", "--abort")
		return nil, wikierrors.New(wikierrors.KindDataIntegrity, wikierrors.CodeSyncConflict,
			"fast-forward merge failed, worktree left untouched", err.Error(), err)
	}

	head, err := w.resolveRef(ctx, localPath, "HEAD")
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "failed to resolve HEAD after pull", "", err)
	}

	known := sinceCommit != "" && w.refExists(ctx, localPath, sinceCommit)

	var args []string
	if known {
		args = []string{"log", "--format=%H%x01%an%x01%at%x01%s", fmt.Sprintf("%s..%s", sinceCommit, head)}
	} else {
		args = []string{"log", "--format=%H%x01%an%x01%at%x01%s", "-n", strconv.Itoa(defaultPullLogSize), head}
	}

	commits, err := w.commitLog(ctx, localPath, args)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "failed to read commit log", "", err)
	}

	return &PullResult{Commits: commits, HeadCommit: head}, nil
}

func (w *Workspace) refExists(ctx context.Context, localPath, ref string) bool {
	cmd := exec.CommandContext(ctx, "git", "cat-file", "-e", ref)
	cmd.Dir = localPath
	return cmd.Run() == nil
}

func (w *Workspace) runGit(ctx context.Context, localPath string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = localPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

func (w *Workspace) commitLog(ctx context.Context, localPath string, args []string) ([]CommitInfo, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = localPath
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var commits []CommitInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\x01", 4)
		if len(parts) != 4 {
			continue
		}
		unix, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, CommitInfo{
			Hash: parts[0], Author: parts[1], CommittedAt: time.Unix(unix, 0), Message: parts[3],
		})
	}
	return commits, scanner.Err()
}

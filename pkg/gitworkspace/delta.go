// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitworkspace

import (
	"bufio"
	"bytes"
	"context"
	"sort"
	"strings"
)

// ChangeType classifies a file's status within a Delta.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// Delta is the set of files changed between two commits, used by the
// incremental-update sub-pipeline (§4.11) to scope regeneration to the
// catalog nodes whose sources actually moved. Grounded on 
// GitDelta/DeltaDetector (pkg/ingestion/delta.go).
type Delta struct {
	BaseSHA  string
	HeadSHA  string
	Added    []string
	Modified []string
	Deleted  []string
	Renamed  map[string]string
	All      []string
}

// ChangeType reports how path changed within the delta, or "" if it did
// not change.
func (d *Delta) ChangeType(path string) ChangeType {
	for _, p := range d.Added {
		if p == path {
			return ChangeAdded
		}
	}
	for _, p := range d.Modified {
		if p == path {
			return ChangeModified
		}
	}
	for _, p := range d.Deleted {
		if p == path {
			return ChangeDeleted
		}
	}
	for old, new := range d.Renamed {
		if new == path {
			return ChangeRenamed
		}
		if old == path {
			return ChangeDeleted
		}
	}
	return ""
}

// HasChanges reports whether the delta touched any file.
func (d *Delta) HasChanges() bool {
	return len(d.All) > 0
}

// DetectDelta computes the file-level delta between baseSHA and headSHA
// using git diff --name-status -M (rename detection). If baseSHA is
// empty, it is resolved to git's well-known empty-tree SHA so an initial
// pipeline run sees every file as added.
func (w *Workspace) DetectDelta(ctx context.Context, localPath, baseSHA, headSHA string) (*Delta, error) {
	if headSHA == "" {
		headSHA = "HEAD"
	}
	resolvedHead, err := w.resolveRef(ctx, localPath, headSHA)
	if err != nil {
		return nil, err
	}

	resolvedBase := baseSHA
	if resolvedBase == "" {
		resolvedBase = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	} else {
		resolvedBase, err = w.resolveRef(ctx, localPath, baseSHA)
		if err != nil {
			return nil, err
		}
	}

	delta := &Delta{BaseSHA: resolvedBase, HeadSHA: resolvedHead, Renamed: map[string]string{}}

	cmd := execGit(ctx, localPath, "diff", "--name-status", "-M", resolvedBase, resolvedHead)
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status, paths := parts[0], parts[1:]
		switch status[0] {
		case 'A':
			delta.Added = append(delta.Added, paths[0])
		case 'M':
			delta.Modified = append(delta.Modified, paths[0])
		case 'D':
			delta.Deleted = append(delta.Deleted, paths[0])
		case 'R':
			if len(paths) >= 2 {
				delta.Renamed[paths[0]] = paths[1]
			}
		case 'C':
			if len(paths) >= 2 {
				delta.Added = append(delta.Added, paths[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Strings(delta.Added)
	sort.Strings(delta.Modified)
	sort.Strings(delta.Deleted)

	allSet := map[string]bool{}
	for _, p := range delta.Added {
		allSet[p] = true
	}
	for _, p := range delta.Modified {
		allSet[p] = true
	}
	for _, p := range delta.Deleted {
		allSet[p] = true
	}
	for old, new := range delta.Renamed {
		allSet[old] = true
		allSet[new] = true
	}
	for p := range allSet {
		delta.All = append(delta.All, p)
	}
	sort.Strings(delta.All)

	return delta, nil
}

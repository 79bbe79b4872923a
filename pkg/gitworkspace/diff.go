// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitworkspace

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ContentChanged reports whether oldText and newText differ beyond
// trivial whitespace, used by the incremental-update sub-pipeline (§4.11)
// to avoid invalidating a catalog node's FileItemSource citations over a
// line-ending or trailing-whitespace-only commit.
func ContentChanged(oldText, newText string) bool {
	if oldText == newText {
		return false
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			return true
		}
	}
	return false
}

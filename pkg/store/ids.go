// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// repositoryID derives a deterministic id from the repository's identity
// triple, same strategy as  GenerateFileID/GenerateFunctionID
// (pkg/ingestion/ids.go): hash a normalized, stable string so the same
// logical entity always gets the same id, rather than assigning a random
// one at creation time.
func repositoryID(organization, name, branch string) string {
	idStr := fmt.Sprintf("%s/%s@%s", organization, name, branch)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("repo_%s", hex.EncodeToString(hash[:16]))
}

// catalogNodeID derives a deterministic id for a catalog node from its
// repository and slug path, so re-planning an unchanged node reuses the
// same id instead of creating a duplicate row.
func catalogNodeID(repositoryID, slugPath string) string {
	idStr := fmt.Sprintf("%s::%s", repositoryID, normalizeSlugPath(slugPath))
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("node_%s", hex.EncodeToString(hash[:16]))
}

func normalizeSlugPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// newRunID returns a fresh opaque id for entities with no natural stable
// key (FileItemSource rows, CommitRecord rows): google/uuid, same library
// theRebelliousNerd-codenerd uses for its run identifiers.
func newRunID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

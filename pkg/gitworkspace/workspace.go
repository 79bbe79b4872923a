// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package gitworkspace clones, pulls, and inspects repositories on local
// disk (§4.1). Every git operation shells out to the system git binary
// rather than linking a CGO git library, the same choice a CGO-free sibling repo makes
// in pkg/ingestion for its repo loader and delta detector.
package gitworkspace

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kraklabs/docwiki/internal/observability"
)

// dangerousCharsPattern rejects shell metacharacters that could turn a
// clone URL into command injection once interpolated into exec.Command
// arguments (exec.Command never invokes a shell, but we still refuse to
// even construct a URL an operator could have pasted with injected
// control characters).
var dangerousCharsPattern = regexp.MustCompile("[;&|$`\n\r\\\\]")

var validGitURLPattern = regexp.MustCompile(`^(https?://|git@|ssh://)[\w.\-@:/%]+$`)

// Workspace manages on-disk clones rooted under a single directory, keyed
// by (organization, name, branch).
type Workspace struct {
	root   string
	logger *slog.Logger
}

// New creates a Workspace rooted at root, which is created on first use.
func New(root string, logger *slog.Logger) *Workspace {
	return &Workspace{root: root, logger: observability.OrDefault(logger)}
}

// LocalPath returns the deterministic clone path for a repository's
// identity triple, the same derivation spec §4.1 names:
// <root>/<organization>/<name>/<branch>.
func (w *Workspace) LocalPath(organization, name, branch string) string {
	return filepath.Join(w.root, organization, name, branch)
}

func validateGitURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("git address is empty")
	}
	if dangerousCharsPattern.MatchString(raw) {
		return fmt.Errorf("git address contains disallowed characters")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("address missing host")
		}
		return nil
	}
	if strings.HasPrefix(raw, "git@") || strings.HasPrefix(raw, "ssh://") {
		if !validGitURLPattern.MatchString(raw) {
			return fmt.Errorf("invalid ssh address format")
		}
		return nil
	}
	if strings.HasPrefix(raw, "file://") {
		return nil
	}
	return fmt.Errorf("unsupported git address scheme: must be https://, git@, ssh://, or file://")
}

// withCredentials embeds username/token into an https address without
// ever writing the result to a log line; callers must use redactedURL for
// any diagnostic output.
func withCredentials(address, username, token string) (string, error) {
	if username == "" && token == "" {
		return address, nil
	}
	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("credentials only supported for http(s) addresses")
	}
	parsed.User = url.UserPassword(username, token)
	return parsed.String(), nil
}

// redactedURL strips credentials and query parameters before logging.
func redactedURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	parsed.RawQuery = ""
	if parsed.User != nil {
		parsed.User = url.User("***")
	}
	return parsed.String()
}

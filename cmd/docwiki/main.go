// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command docwiki generates and serves living documentation for git
// repositories: clone, classify, outline, and write per-section markdown
// through an LLM, then keep it current as new commits land.
//
// Usage:
//
//	docwiki serve                 Run the HTTP surface and scheduler
//	docwiki register <org>/<name> Register a repository for processing
//	docwiki reset <id>            Reset a repository back to PENDING
//	docwiki status [id]           Show repository status
//	docwiki export <id>           Write a ZIP of a repository's docs
//	docwiki mcp                   Start as MCP server (JSON-RPC over stdio)
//
// Generalized from cmd/cie's flag-based CLI (its main.go
// package doc and global --version/--config flags, status.go/reset.go's
// subcommand shapes, queue.go's lock/queue conventions) onto a single
// cobra command tree per SPEC_FULL §2a.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "docwiki",
		Short:         "Generate and serve living documentation for git repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a docwiki config file (default: ./.docwiki.yaml)")

	root.AddCommand(
		newServeCommand(),
		newRegisterCommand(),
		newResetCommand(),
		newStatusCommand(),
		newExportCommand(),
		newMCPCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

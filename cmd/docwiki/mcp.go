// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"github.com/spf13/cobra"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/mcp"
	"github.com/kraklabs/docwiki/pkg/store"
)

// newMCPCommand starts docwiki's read-only MCP server on stdio, so an
// AI agent can browse generated documentation as tools rather than
// HTTP requests. Grounded on the example corpus's MCP command
// plumbing (cobra command, --debug flag, server.Run(ctx) blocking
// until the stdio connection closes).
func newMCPCommand() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:           "mcp",
		Short:         "Start docwiki as an MCP server (JSON-RPC over stdio)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if debug {
				level = "debug"
			}
			logger := observability.NewLogger(level, cfg.Log.JSON)

			st, err := store.Open(store.Config{Engine: store.Engine(cfg.Store.Engine), DataDir: cfg.Store.DataDir, Logger: logger})
			if err != nil {
				return err
			}
			defer st.Close()

			srv := mcp.NewServer(mcp.ServerDeps{Store: st, Logger: logger})
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")
	return cmd
}

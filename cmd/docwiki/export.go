// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"archive/zip"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kraklabs/docwiki/internal/ui"
	"github.com/kraklabs/docwiki/pkg/store"
)

// newExportCommand writes the same ZIP of completed leaves' markdown
// that GET /export/{id} serves over HTTP (pkg/httpapi/export.go), as a
// local file for offline use. Follows the pattern of cmd/cie's export
// subcommands writing artifacts to a caller-chosen path.
func newExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <repository-id>",
		Short: "Write a ZIP of a repository's generated documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			_, st, _, _, err := buildDeps()
			if err != nil {
				return err
			}
			defer st.Close()

			repo, err := st.GetRepository(cmd.Context(), id)
			if err != nil {
				return err
			}
			nodes, err := st.ListCatalogNodes(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("%s-%s-%s.zip", repo.Organization, repo.Name, repo.Branch)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()

			zw := zip.NewWriter(f)
			written := 0
			for _, leaf := range store.Leaves(nodes) {
				if !leaf.IsCompleted {
					continue
				}
				item, _, err := st.GetFileItem(cmd.Context(), leaf.ID)
				if err != nil {
					continue
				}
				entry, err := zw.Create(leaf.Slug + ".md")
				if err != nil {
					continue
				}
				if _, err := entry.Write([]byte(item.Content)); err != nil {
					return err
				}
				written++
			}
			if err := zw.Close(); err != nil {
				return err
			}

			ui.Successf("wrote %d document(s) to %s", written, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "output ZIP path (default: <org>-<name>-<branch>.zip)")
	return cmd
}

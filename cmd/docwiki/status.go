// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/docwiki/internal/ui"
	"github.com/kraklabs/docwiki/pkg/store"
)

// newStatusCommand shows one repository's status, or a page of all
// repositories when no id is given. Follows cmd/cie/status.go's shape
// (StatusResult struct, --json flag, human-readable fallback),
// generalized from CozoDB row counts to Repository fields.
func newStatusCommand() *cobra.Command {
	var jsonOutput bool
	var keyword string
	cmd := &cobra.Command{
		Use:   "status [repository-id]",
		Short: "Show repository status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, _, err := buildDeps()
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				repo, err := st.GetRepository(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(repo)
				}
				printRepositoryStatus(repo)
				return nil
			}

			repos, err := st.ListRepositories(cmd.Context(), store.ListRepositoriesOpts{Keyword: keyword, PageSize: 100})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(repos)
			}
			for _, repo := range repos {
				printRepositoryStatus(repo)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&keyword, "keyword", "", "filter by organization/name keyword")
	return cmd
}

func printRepositoryStatus(repo *store.Repository) {
	fmt.Printf("%s %s/%s@%s [%s]\n", ui.Label(repo.ID), repo.Organization, repo.Name, repo.Branch, repo.Status)
	if repo.Error != "" {
		ui.Warning(repo.Error)
	}
}

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

// newRegisterCommand creates a Repository row in PENDING status; the
// scheduler's processing sweep (or a running serve process's background
// dispatch) picks it up from there. Mirrors cmd/cie's `cie index`
// one-shot UX but against the resident scheduler instead of an
// in-process indexing run.
func newRegisterCommand() *cobra.Command {
	var (
		branch       string
		address      string
		prompt       string
		credUsername string
		credToken    string
		jsonOutput   bool
	)
	cmd := &cobra.Command{
		Use:   "register <organization>/<name>",
		Short: "Register a repository for documentation generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, name, err := splitOrgName(args[0])
			if err != nil {
				return err
			}
			if address == "" {
				return fmt.Errorf("--address is required")
			}

			_, st, _, _, err := buildDeps()
			if err != nil {
				return err
			}
			defer st.Close()

			repo, err := st.CreateRepository(cmd.Context(), store.NewRepositoryInput{
				Organization: org, Name: name, Branch: branch, Address: address,
				CredUsername: credUsername, CredToken: credToken, Prompt: prompt,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(repo)
			}
			ui.Successf("registered %s/%s@%s (id=%s)", repo.Organization, repo.Name, repo.Branch, repo.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "main", "branch to track")
	cmd.Flags().StringVar(&address, "address", "", "git clone address (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "optional generation prompt / focus area")
	cmd.Flags().StringVar(&credUsername, "cred-username", "", "credential username for private repositories")
	cmd.Flags().StringVar(&credToken, "cred-token", "", "credential token for private repositories")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func splitOrgName(spec string) (string, string, error) {
	for i := range spec {
		if spec[i] == '/' {
			org, name := spec[:i], spec[i+1:]
			if org == "" || name == "" {
				break
			}
			return org, name, nil
		}
	}
	return "", "", fmt.Errorf("expected <organization>/<name>, got %q", spec)
}

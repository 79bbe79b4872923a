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

// newResetCommand clears a repository's Error/FailureCount and puts it
// back in PENDING so the scheduler re-dispatches it from scratch.
// Follows cmd/cie/reset.go's --yes confirmation
// convention, adapted from a destructive directory-delete to a single
// status-patch since reset here means "reprocess", not "erase".
func newResetCommand() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset <repository-id>",
		Short: "Reset a repository back to PENDING for reprocessing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("pass --yes to confirm resetting %s", args[0])
			}

			_, st, orch, _, err := buildDeps()
			if err != nil {
				return err
			}
			defer st.Close()

			id := args[0]
			if _, err := st.GetRepository(cmd.Context(), id); err != nil {
				return err
			}

			pending := store.StatusPending
			emptyStr := ""
			zero := 0
			if err := st.UpdateRepository(cmd.Context(), id, store.RepositoryPatch{
				Status:           &pending,
				Error:            &emptyStr,
				FailureCount:     &zero,
				RefreshHeartbeat: true,
			}); err != nil {
				return err
			}

			if orch != nil {
				go func() { _ = orch.Run(cmd.Context(), id) }()
			}

			ui.Successf("repository %s reset to PENDING", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the reset")
	return cmd
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kraklabs/docwiki/internal/ui"
	"github.com/kraklabs/docwiki/pkg/httpapi"
)

// newServeCommand builds the resident process: the HTTP surface of §6
// and the scheduler of §4.12 run concurrently until a termination
// signal arrives, generalized from cmd/cie/start.go's
// long-running Docker-orchestration loop into docwiki's own domain.
func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP surface and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, orch, sched, err := buildDeps()
			if err != nil {
				return err
			}
			defer st.Close()

			server := httpapi.New(st, orch, nil)
			httpServer := &http.Server{Addr: addr, Handler: server}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 2)
			go func() {
				ui.Infof("serving HTTP on %s", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("http server: %w", err)
				}
			}()
			go func() {
				if err := sched.Run(ctx); err != nil {
					errCh <- fmt.Errorf("scheduler: %w", err)
				}
			}()

			select {
			case <-ctx.Done():
				ui.Info("shutting down")
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

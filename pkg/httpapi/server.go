// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpapi exposes §6's HTTP surface over pkg/store and
// pkg/pipeline. Grounded on pkg/tools/client.go HTTP
// client shape, mirrored server-side: net/http plus the standard
// library's method-and-wildcard ServeMux patterns, not a web framework
// — the reference repo itself carries no HTTP framework dependency.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/pipeline"
	"github.com/kraklabs/docwiki/pkg/store"
)

// Server wires the HTTP surface to a Store and an Orchestrator.
type Server struct {
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
	mux          *http.ServeMux
}

// New builds a Server and registers every route from spec §6.
func New(st *store.Store, orch *pipeline.Orchestrator, logger *slog.Logger) *Server {
	s := &Server{store: st, orchestrator: orch, logger: observability.OrDefault(logger), mux: http.NewServeMux()}
	s.routes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// dispatch kicks the orchestrator for repositoryID in the background so a
// freshly created or reset repository starts processing immediately
// rather than waiting for the scheduler's next processing sweep. Errors
// are logged, not surfaced to the caller: the scheduler's stuck-repository
// sweep picks up anything this dispatch misses or fails at.
func (s *Server) dispatch(repositoryID string) {
	if s.orchestrator == nil {
		return
	}
	go func() {
		if err := s.orchestrator.Run(context.Background(), repositoryID); err != nil {
			s.logger.Warn("httpapi: background dispatch failed", "repository_id", repositoryID, "error", err)
		}
	}()
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /repository", s.handleCreateRepository)
	s.mux.HandleFunc("GET /repository", s.handleListRepositories)
	s.mux.HandleFunc("GET /repository/{id}", s.handleGetRepository)
	s.mux.HandleFunc("PUT /repository/{id}", s.handleUpdateRepository)
	s.mux.HandleFunc("DELETE /repository/{id}", s.handleDeleteRepository)
	s.mux.HandleFunc("POST /repository/{id}/reset", s.handleResetRepository)
	s.mux.HandleFunc("GET /document-catalog", s.handleDocumentCatalog)
	s.mux.HandleFunc("GET /document", s.handleDocument)
	s.mux.HandleFunc("PUT /catalog/{id}", s.handleUpdateCatalogNode)
	s.mux.HandleFunc("PUT /content/{id}", s.handleUpdateContent)
	s.mux.HandleFunc("GET /overview", s.handleOverview)
	s.mux.HandleFunc("GET /mini-map", s.handleMiniMap)
	s.mux.HandleFunc("GET /change-log", s.handleChangeLog)
	s.mux.HandleFunc("GET /export/{id}", s.handleExport)
}

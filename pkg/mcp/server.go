// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package mcp exposes docwiki's generated documentation as read-only
// Model Context Protocol tools over stdio, so an AI agent can browse a
// repository's catalog and sections without going through the HTTP
// surface of pkg/httpapi. Grounded on the example corpus's
// github.com/modelcontextprotocol/go-sdk-based MCP server (the
// pattern survived only as build-tagged reference code, since the
// Sumatoshi-tech-codefang itself ships its own analysis tools rather than docwiki's
// documentation tools, so the tool set here is original to this
// domain while the server plumbing follows that shape).
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kraklabs/docwiki/pkg/store"
)

const (
	serverName    = "docwiki"
	serverVersion = "1.0.0"
)

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	Store  *store.Store
	Logger *slog.Logger
}

// Server wraps the MCP SDK server with docwiki's read-only tools.
type Server struct {
	inner *mcpsdk.Server
	store *store.Store
	mu    sync.RWMutex
	tools []string
}

// NewServer creates an MCP server with every docwiki tool registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: serverName, Version: serverVersion},
		opts,
	)

	srv := &Server{inner: inner, store: deps.Store}
	srv.registerTools()
	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)
	return names
}

// Run starts the MCP server on stdio transport, blocking until ctx is
// canceled or the peer closes the connection.
func (s *Server) Run(ctx context.Context) error {
	if err := s.inner.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        toolNameListRepositories,
		Description: listRepositoriesDescription,
	}, s.handleListRepositories)
	s.trackTool(toolNameListRepositories)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        toolNameDocumentCatalog,
		Description: documentCatalogDescription,
	}, s.handleDocumentCatalog)
	s.trackTool(toolNameDocumentCatalog)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        toolNameGetDocument,
		Description: getDocumentDescription,
	}, s.handleGetDocument)
	s.trackTool(toolNameGetDocument)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, name)
}

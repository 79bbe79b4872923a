// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kraklabs/docwiki/pkg/store"
)

const (
	toolNameListRepositories = "docwiki_list_repositories"
	toolNameDocumentCatalog  = "docwiki_document_catalog"
	toolNameGetDocument      = "docwiki_get_document"
)

const (
	listRepositoriesDescription = "List registered repositories, optionally filtered by a keyword " +
		"matched against organization/name."

	documentCatalogDescription = "Get a repository's documentation catalog: the section tree, " +
		"generation progress, and the other branches registered for the same repository."

	getDocumentDescription = "Get the generated markdown for one catalog section, identified by " +
		"its slug path within a repository's catalog."
)

// ToolOutput wraps every tool's structured result.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}

// ListRepositoriesInput is the input schema for docwiki_list_repositories.
type ListRepositoriesInput struct {
	Keyword string `json:"keyword,omitempty" jsonschema:"filter by organization/name substring"`
}

func (s *Server) handleListRepositories(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ListRepositoriesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	repos, err := s.store.ListRepositories(ctx, store.ListRepositoriesOpts{Keyword: input.Keyword, PageSize: 100})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(repos)
}

// DocumentCatalogInput is the input schema for docwiki_document_catalog.
type DocumentCatalogInput struct {
	Organization string `json:"organization"       jsonschema:"repository organization"`
	Name         string `json:"name"               jsonschema:"repository name"`
	Branch       string `json:"branch,omitempty"   jsonschema:"branch (default: main)"`
}

func (s *Server) handleDocumentCatalog(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input DocumentCatalogInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	branch := input.Branch
	if branch == "" {
		branch = "main"
	}
	repo, err := s.store.GetRepositoryByTriple(ctx, input.Organization, input.Name, branch)
	if err != nil {
		return errorResult(err)
	}
	nodes, err := s.store.ListCatalogNodes(ctx, repo.ID)
	if err != nil {
		return errorResult(err)
	}
	doc, err := s.store.GetDocument(ctx, repo.ID)
	completed, total := 0, 0
	if err == nil {
		completed, total = doc.CompletedLeaves, doc.TotalLeaves
	}
	siblings, err := s.store.ListRepositoriesByName(ctx, repo.Organization, repo.Name)
	if err != nil {
		return errorResult(err)
	}
	branches := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		branches = append(branches, sib.Branch)
	}

	return jsonResult(map[string]any{
		"repository":       repo,
		"nodes":            nodes,
		"completed_leaves": completed,
		"total_leaves":     total,
		"branches":         branches,
	})
}

// GetDocumentInput is the input schema for docwiki_get_document.
type GetDocumentInput struct {
	Organization string `json:"organization" jsonschema:"repository organization"`
	Name         string `json:"name"         jsonschema:"repository name"`
	Branch       string `json:"branch,omitempty" jsonschema:"branch (default: main)"`
	Path         string `json:"path"         jsonschema:"catalog node slug path"`
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input GetDocumentInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	branch := input.Branch
	if branch == "" {
		branch = "main"
	}
	repo, err := s.store.GetRepositoryByTriple(ctx, input.Organization, input.Name, branch)
	if err != nil {
		return errorResult(err)
	}
	node, err := s.store.GetCatalogNodeBySlug(ctx, repo.ID, input.Path)
	if err != nil {
		return errorResult(err)
	}
	item, sources, err := s.store.GetFileItem(ctx, node.ID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"title":           item.Title,
		"content":         item.Content,
		"request_tokens":  item.RequestTokens,
		"response_tokens": item.ResponseTokens,
		"sources":         sources,
	})
}

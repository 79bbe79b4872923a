// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package sectiongen generates the documentation content for each leaf
// CatalogNode (§4.9): a streaming, tool-using LLM Gateway call per leaf,
// run up to N at a time behind a semaphore, grounded on 
// worker-pool shape in pkg/ingestion/embedding.go (generalized from a
// fixed jobs channel to a semaphore-gated goroutine per leaf, since each
// leaf's work unit — one LLM conversation — is already a single
// self-contained call rather than a batch to fan further).
package sectiongen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/depanalysis"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
	"github.com/kraklabs/docwiki/pkg/toolsurface"
)

// DefaultConcurrency is the default number of leaves generated in
// parallel per repository (§4.9).
const DefaultConcurrency = 5

var docsTagRe = regexp.MustCompile(`(?s)<docs>\s*(.*?)\s*</docs>`)

// Params carries the inputs shared across every leaf of one repository's
// generation run.
type Params struct {
	RepositoryID string
	Model        string
	Label        classifier.Label
	Root         string
	Tree         string
	Readme       string
	Concurrency  int
}

// LeafResult reports the outcome for one leaf. Err is non-nil only for
// that leaf — callers must not treat it as aborting the run (§4.9: "A
// failure on one leaf does not abort siblings").
type LeafResult struct {
	Node *store.CatalogNode
	Err  error
}

// GenerateLeaves processes every incomplete leaf of params.RepositoryID
// up to params.Concurrency at a time. analyzer and searcher back the Tool
// Surface each leaf's conversation gets; either may be nil.
func GenerateLeaves(ctx context.Context, gw *llmgateway.Gateway, st *store.Store,
	analyzer *depanalysis.Analyzer, searcher toolsurface.Searcher, params Params) ([]LeafResult, error) {

	nodes, err := st.ListCatalogNodes(ctx, params.RepositoryID)
	if err != nil {
		return nil, fmt.Errorf("sectiongen: %w", err)
	}
	leaves := store.Leaves(nodes)

	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]LeafResult, len(leaves))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, leaf := range leaves {
		if leaf.IsCompleted {
			results[i] = LeafResult{Node: leaf}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, leaf *store.CatalogNode) {
			defer wg.Done()
			defer func() { <-sem }()
			err := generateLeaf(ctx, gw, st, analyzer, searcher, params, leaf)
			results[i] = LeafResult{Node: leaf, Err: err}
		}(i, leaf)
	}
	wg.Wait()

	return results, nil
}

func generateLeaf(ctx context.Context, gw *llmgateway.Gateway, st *store.Store,
	analyzer *depanalysis.Analyzer, searcher toolsurface.Searcher, params Params, leaf *store.CatalogNode) error {

	surface := toolsurface.New(params.Root, params.Tree, analyzer, searcher)

	req := llmgateway.ChatRequest{
		Model: params.Model,
		Tools: toolsurface.ToolDefinitions(),
		Messages: []llmgateway.Message{
			{Role: "system", Content: systemPromptFor(params.Label)},
			{Role: "user", Content: buildLeafPrompt(params, leaf)},
		},
	}

	resp, err := gw.StreamChat(ctx, req, surface, nil)
	if err != nil {
		return fmt.Errorf("generate leaf %q: %w", leaf.Title, err)
	}

	body := extractDocs(resp.Message.Content)
	sources := make([]store.FileItemSource, 0, len(surface.Recorder.TouchedFiles()))
	for _, path := range surface.Recorder.TouchedFiles() {
		sources = append(sources, store.FileItemSource{
			CatalogNodeID: leaf.ID,
			FilePath:      path,
		})
	}

	item := store.FileItem{
		CatalogNodeID:  leaf.ID,
		Title:          leaf.Title,
		Content:        body,
		RequestTokens:  resp.PromptTokens,
		ResponseTokens: resp.OutputTokens,
		Size:           len(body),
	}
	if err := st.PutFileItem(ctx, item, sources); err != nil {
		return fmt.Errorf("persist leaf %q: %w", leaf.Title, err)
	}
	return nil
}

func buildLeafPrompt(params Params, leaf *store.CatalogNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\n\n", leaf.Title)
	b.WriteString("Guidance:\n")
	b.WriteString(leaf.Prompt)
	b.WriteString("\n\nDirectory structure:\n")
	b.WriteString(params.Tree)
	b.WriteString("\n\nREADME:\n")
	if params.Readme != "" {
		b.WriteString(params.Readme)
	} else {
		b.WriteString("(none found)")
	}
	b.WriteString("\n\nUse the available tools to read whichever source files this section needs. Write the section's content, wrapped in <docs>...</docs>.")
	return b.String()
}

// extractDocs pulls the <docs> tag's content out of reply, falling back
// to the whole reply when the tag is absent (§4.9).
func extractDocs(reply string) string {
	if m := docsTagRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}

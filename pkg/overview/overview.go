// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package overview generates the per-repository Overview and Mini-Map
// (§4.10): two independent, non-streaming LLM Gateway calls writing
// disjoint Document fields. Mirrors pkg/classifier and pkg/outline's
// tag-then-parse convention, generalized to a cleanup pass (Overview)
// and a permissive, non-fatal JSON parse (Mini-Map).
package overview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
)

// MiniMapNode is the parsed shape of a mini-map reply (§4.10): a tree
// suitable for rendering a knowledge graph.
type MiniMapNode struct {
	Title    string        `json:"title"`
	URL      string        `json:"url"`
	Children []MiniMapNode `json:"children,omitempty"`
}

var (
	blogTagRe    = regexp.MustCompile(`(?s)<blog>\s*(.*?)\s*</blog>`)
	htmlTagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	miniMapTagRe = regexp.MustCompile(`(?s)<mini_map>\s*(.*?)\s*</mini_map>`)
)

// descriptionMaxLen bounds the derived one-line description stored
// alongside the overview (§3: Document "holds... a description").
const descriptionMaxLen = 200

// GenerateOverview runs the Overview LLM call and stores the cleaned
// result on the repository's Document.
func GenerateOverview(ctx context.Context, gw *llmgateway.Gateway, st *store.Store, repositoryID, model string, label classifier.Label, tree, readme string) error {
	req := llmgateway.ChatRequest{
		Model: model,
		Messages: []llmgateway.Message{
			{Role: "system", Content: overviewSystemPromptFor(label)},
			{Role: "user", Content: buildContextPrompt(tree, readme)},
		},
	}
	resp, err := gw.Chat(ctx, req, nil)
	if err != nil {
		return fmt.Errorf("overview: %w", err)
	}

	cleaned := cleanOverview(resp.Message.Content)
	description := deriveDescription(cleaned)

	if err := st.SetOverview(ctx, repositoryID, cleaned, description); err != nil {
		return fmt.Errorf("overview: %w", err)
	}
	return nil
}

// GenerateMiniMap runs the Mini-Map LLM call. A reply that doesn't parse
// into a MiniMapNode tree is stored as an empty string and logged — never
// an error (§4.10).
func GenerateMiniMap(ctx context.Context, gw *llmgateway.Gateway, st *store.Store, repositoryID, model string, label classifier.Label, tree, readme string, logger *slog.Logger) error {
	logger = observability.OrDefault(logger)

	req := llmgateway.ChatRequest{
		Model: model,
		Messages: []llmgateway.Message{
			{Role: "system", Content: miniMapSystemPrompt},
			{Role: "user", Content: buildContextPrompt(tree, readme)},
		},
	}
	resp, err := gw.Chat(ctx, req, nil)
	if err != nil {
		return fmt.Errorf("mini-map: %w", err)
	}

	miniMapJSON := ""
	if root, parseErr := parseMiniMap(resp.Message.Content); parseErr != nil {
		logger.Warn("overview: mini-map reply did not parse, storing empty", "repository_id", repositoryID, "error", parseErr)
	} else {
		encoded, marshalErr := json.Marshal(root)
		if marshalErr != nil {
			logger.Warn("overview: mini-map re-encode failed, storing empty", "repository_id", repositoryID, "error", marshalErr)
		} else {
			miniMapJSON = string(encoded)
		}
	}

	if err := st.SetMiniMap(ctx, repositoryID, miniMapJSON); err != nil {
		return fmt.Errorf("mini-map: %w", err)
	}
	return nil
}

func buildContextPrompt(tree, readme string) string {
	readmeSection := readme
	if readmeSection == "" {
		readmeSection = "(none found)"
	}
	return fmt.Sprintf("Directory structure:\n%s\n\nREADME:\n%s", tree, readmeSection)
}

// cleanOverview strips a <blog>...</blog> wrapper if present, then strips
// any remaining HTML tags, leaving plain text/Markdown (§4.10).
func cleanOverview(reply string) string {
	body := reply
	if m := blogTagRe.FindStringSubmatch(reply); m != nil {
		body = m[1]
	}
	body = htmlTagRe.ReplaceAllString(body, "")
	return strings.TrimSpace(body)
}

func deriveDescription(overview string) string {
	firstParagraph := overview
	if idx := strings.Index(overview, "\n\n"); idx != -1 {
		firstParagraph = overview[:idx]
	}
	firstParagraph = strings.TrimSpace(strings.ReplaceAll(firstParagraph, "\n", " "))
	if len(firstParagraph) <= descriptionMaxLen {
		return firstParagraph
	}
	return strings.TrimSpace(firstParagraph[:descriptionMaxLen]) + "…"
}

// parseMiniMap extracts the <mini_map> tag (falling back to the whole
// reply) and unmarshals it into a single root MiniMapNode.
func parseMiniMap(reply string) (*MiniMapNode, error) {
	raw := reply
	if m := miniMapTagRe.FindStringSubmatch(reply); m != nil {
		raw = m[1]
	}
	var root MiniMapNode
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &root); err != nil {
		return nil, fmt.Errorf("invalid mini-map JSON: %w", err)
	}
	if root.Title == "" {
		return nil, fmt.Errorf("mini-map root has no title")
	}
	return &root, nil
}

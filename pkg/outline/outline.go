// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package outline plans a repository's catalog forest (§4.8): a single
// classification-specific LLM Gateway call whose reply must carry a
// `<documentation_structure>...</documentation_structure>` JSON forest.
// The raw JSON is validated against a schema first — a cheap structural
// check that catches a malformed-but-syntactically-valid reply before
// pkg/store's cycle/slug/depth semantic checks ever run, the general
// ordering this pattern appeared in internal/contract/validation.go before
// its deletion from this tree (see DESIGN.md). A parse, schema, or
// semantic failure retries up to MaxAttempts with the model's prior
// output appended as context; persistent failure surfaces a
// PLAN_INVALID error for the Pipeline Orchestrator to set FAILED on
// (§4.11).
package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/kraklabs/docwiki/internal/wikierrors"
	"github.com/kraklabs/docwiki/pkg/classifier"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
	"github.com/kraklabs/docwiki/pkg/store"
)

// MaxAttempts bounds the parse/validate retry loop (§4.8).
const MaxAttempts = 3

var structureTagRe = regexp.MustCompile(`(?s)<documentation_structure>\s*(.*?)\s*</documentation_structure>`)

// RepoMeta is the repository-identifying context included in the outline
// prompt (§4.8: "Input: repository metadata...").
type RepoMeta struct {
	Organization string
	Name         string
	Branch       string
}

// Plan runs the outline planning call, validates the reply, and persists
// the resulting forest via st.ReplaceCatalogForest.
func Plan(ctx context.Context, gw *llmgateway.Gateway, st *store.Store, repositoryID, model string, label classifier.Label, meta RepoMeta, tree, readme string) ([]*store.CatalogNode, error) {
	messages := []llmgateway.Message{
		{Role: "system", Content: systemPromptFor(label)},
		{Role: "user", Content: buildUserPrompt(meta, tree, readme)},
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		resp, err := gw.Chat(ctx, llmgateway.ChatRequest{Model: model, Messages: messages}, nil)
		if err != nil {
			return nil, fmt.Errorf("outline: %w", err)
		}

		forest, parseErr := extractForest(resp.Message.Content)
		if parseErr == nil {
			nodes, persistErr := st.ReplaceCatalogForest(ctx, repositoryID, forest)
			if persistErr == nil {
				return nodes, nil
			}
			parseErr = persistErr
		}
		lastErr = parseErr

		messages = append(messages,
			llmgateway.Message{Role: "assistant", Content: resp.Message.Content},
			llmgateway.Message{Role: "user", Content: fmt.Sprintf(
				"Your previous reply could not be used: %s\n\nReturn the full corrected catalog structure, again wrapped in <documentation_structure>...</documentation_structure>.",
				parseErr)},
		)
	}

	return nil, wikierrors.New(wikierrors.KindDataIntegrity, wikierrors.CodePlanInvalid,
		"outline planner could not produce a valid catalog structure after retries", lastErr.Error(), lastErr)
}

func buildUserPrompt(meta RepoMeta, tree, readme string) string {
	readmeSection := readme
	if readmeSection == "" {
		readmeSection = "(none found)"
	}
	return fmt.Sprintf(
		"Repository: %s/%s (branch %s)\n\nDirectory structure:\n%s\n\nREADME:\n%s",
		meta.Organization, meta.Name, meta.Branch, tree, readmeSection)
}

// extractForest pulls the documentation_structure tag out of reply,
// validates it against the schema, and unmarshals it into a PlannedNode
// forest. It does not check depth or sibling-slug uniqueness — that's
// pkg/store's job, called by Plan immediately after.
func extractForest(reply string) ([]store.PlannedNode, error) {
	m := structureTagRe.FindStringSubmatch(reply)
	if m == nil {
		return nil, fmt.Errorf("no <documentation_structure> tag found in reply")
	}
	raw := m[1]

	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var forest []store.PlannedNode
	if err := json.Unmarshal([]byte(raw), &forest); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(forest) == 0 {
		return nil, fmt.Errorf("catalog structure is empty")
	}
	return forest, nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package classifier assigns a repository's classification label from its
// compact tree and README (§4.7): a single non-streaming LLM Gateway call
// whose reply is parsed by locating a known tag; anything unparseable
// yields Unknown without a retry. Grounded on 
// pkg/llm/helpers.go SystemPrompts/CodePrompt prompt-assembly convention —
// a fixed instruction string plus a templated user message — generalized
// from ad hoc code tasks to the repository classification task.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kraklabs/docwiki/pkg/llmgateway"
)

// Label is one of the fixed classification outcomes (§4.7).
type Label string

const (
	LabelFramework           Label = "framework"
	LabelLibrary             Label = "library"
	LabelApplication         Label = "application"
	LabelCLITool             Label = "cli_tool"
	LabelDevelopmentTool     Label = "development_tool"
	LabelDocumentation       Label = "documentation"
	LabelDevopsConfiguration Label = "devops_configuration"
	LabelUnknown             Label = "unknown"
)

var validLabels = map[Label]bool{
	LabelFramework: true, LabelLibrary: true, LabelApplication: true,
	LabelCLITool: true, LabelDevelopmentTool: true, LabelDocumentation: true,
	LabelDevopsConfiguration: true,
}

// systemPrompt is the fixed instruction sent on every classification
// call — one prompt, not a per-label variant, since classification
// precedes the label the rest of the pipeline branches on.
const systemPrompt = `You are classifying a software repository into exactly one category based on its directory structure and README.

Categories:
- framework: a foundation other projects build on top of
- library: a reusable package consumed by other code, not run standalone
- application: a deployable end-user or end-service program
- cli_tool: a command-line utility
- development_tool: tooling that assists developers (linters, generators, build tools)
- documentation: a repository whose primary content is documentation, not code
- devops_configuration: infrastructure-as-code, CI/CD, or deployment configuration

Respond with exactly one category wrapped in a tag, and nothing else:
<classification>category_name</classification>`

var classificationTagRe = regexp.MustCompile(`(?s)<classification>\s*(.*?)\s*</classification>`)

func buildUserPrompt(tree, readme string) string {
	var b strings.Builder
	b.WriteString("Directory structure:\n")
	b.WriteString(tree)
	b.WriteString("\n\n")
	if readme != "" {
		b.WriteString("README:\n")
		b.WriteString(readme)
	} else {
		b.WriteString("README: (none found)")
	}
	return b.String()
}

// Classify runs the single classification call and parses the reply. A
// Gateway error propagates. The label is read from the classification
// tag, or from the whole reply when no tag is present; text that names no
// known label yields LabelUnknown with no retry (§4.7).
func Classify(ctx context.Context, gw *llmgateway.Gateway, model, tree, readme string) (Label, error) {
	req := llmgateway.ChatRequest{
		Model: model,
		Messages: []llmgateway.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(tree, readme)},
		},
	}
	resp, err := gw.Chat(ctx, req, nil)
	if err != nil {
		return "", fmt.Errorf("classifier: %w", err)
	}
	return parseLabel(resp.Message.Content), nil
}

func parseLabel(reply string) Label {
	m := classificationTagRe.FindStringSubmatch(reply)
	var candidate string
	if m != nil {
		candidate = m[1]
	} else {
		candidate = reply
	}
	label := Label(strings.ToLower(strings.TrimSpace(candidate)))
	if validLabels[label] {
		return label
	}
	return LabelUnknown
}

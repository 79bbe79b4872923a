// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package overview

import "github.com/kraklabs/docwiki/pkg/classifier"

// overviewSystemPromptFor returns the classification-specific overview
// prompt (§4.10). Mirrors pkg/outline and pkg/sectiongen's per-label
// variant convention.
func overviewSystemPromptFor(label classifier.Label) string {
	if variant, ok := overviewVariants[label]; ok {
		return overviewHeader + variant + overviewFooter
	}
	return overviewHeader + overviewGenericVariant + overviewFooter
}

const overviewHeader = `You are writing a short top-level overview of a software repository, based on its directory structure and README.

`

const overviewFooter = `
Write two to four paragraphs in plain Markdown, no headings. Respond with nothing but the overview text.`

var overviewVariants = map[classifier.Label]string{
	classifier.LabelFramework:           `This is a framework. Explain what it lets developers build and its central abstractions.`,
	classifier.LabelLibrary:             `This is a library. Explain what problem it solves and how it's typically consumed.`,
	classifier.LabelApplication:         `This is a deployable application. Explain what it does, who runs it, and its major components.`,
	classifier.LabelCLITool:             `This is a command-line tool. Explain what it's for and its primary commands.`,
	classifier.LabelDevelopmentTool:     `This is a developer tool. Explain what workflow it improves and how it's used.`,
	classifier.LabelDocumentation:       `This repository's primary content is documentation. Summarize the topic it documents.`,
	classifier.LabelDevopsConfiguration: `This is infrastructure-as-code or deployment configuration. Explain what it provisions and manages.`,
}

const overviewGenericVariant = `The repository's classification is unclear. Summarize its purpose based on what its structure and README actually show.`

const miniMapSystemPrompt = `You are producing a mini-map of a software repository: a tree describing its major components, suitable for rendering as a knowledge graph.

Respond with exactly one JSON object wrapped in a tag, and nothing else:
<mini_map>
{"title": "...", "url": "...", "children": [{"title": "...", "url": "...", "children": []}]}
</mini_map>

url should be a slug-like identifier for the component, not a real link. Keep the tree shallow — top-level components and their most important sub-parts only.`

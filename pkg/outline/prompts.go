// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package outline

import "github.com/kraklabs/docwiki/pkg/classifier"

// systemPromptFor returns the classification-specific outline prompt
// (§4.8: "The prompt is chosen by classification, one variant per
// label"). Each variant shares the same output contract and differs
// only in which sections it tells the model to plan for.
func systemPromptFor(label classifier.Label) string {
	if variant, ok := promptVariants[label]; ok {
		return header + variant + footer
	}
	return header + genericVariant + footer
}

const header = `You are planning the documentation structure for a software repository. You will be given its directory tree and README.

Design a tree of documentation pages. Each page has a title and a prompt describing what that page should cover, written for a documentation-generation model that will later read the repository's source files. Pages may have child pages (subsections), up to 5 levels deep. Sibling pages must have distinct titles.

`

const footer = `
Respond with exactly one JSON array wrapped in a tag, and nothing else:
<documentation_structure>
[{"title": "...", "prompt": "...", "children": [...]}]
</documentation_structure>`

var promptVariants = map[classifier.Label]string{
	classifier.LabelFramework: `This is a framework. Plan pages covering: core concepts and architecture, the extension points other projects build on, a getting-started guide, and a reference section per major subsystem.`,

	classifier.LabelLibrary: `This is a library. Plan pages covering: installation and usage, the public API organized by concern, and any configuration or extension surface it exposes.`,

	classifier.LabelApplication: `This is a deployable application. Plan pages covering: what the application does and who runs it, how to deploy and configure it, its major internal components, and its external interfaces (HTTP routes, CLI commands, message topics).`,

	classifier.LabelCLITool: `This is a command-line tool. Plan pages covering: installation, a command reference (one section per subcommand or flag group), and common usage workflows.`,

	classifier.LabelDevelopmentTool: `This is a developer tool. Plan pages covering: what problem it solves in a development workflow, how to integrate it into a project, and its configuration options.`,

	classifier.LabelDocumentation: `This repository's primary content is documentation. Plan pages that organize and index the existing documentation by topic rather than describing source code.`,

	classifier.LabelDevopsConfiguration: `This is infrastructure-as-code or deployment configuration. Plan pages covering: the environments and resources it provisions, how changes are applied, and any secrets or variables an operator must supply.`,
}

const genericVariant = `The repository's purpose is unclear from its classification. Plan pages covering: an overview of the repository's purpose and structure, its major components, and how to build or run it.`

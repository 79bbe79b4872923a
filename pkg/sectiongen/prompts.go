// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sectiongen

import "github.com/kraklabs/docwiki/pkg/classifier"

// systemPromptFor returns the classification-specific generation prompt
// (§4.9 step 1: "classification-specific system text"). Mirrors
// pkg/outline's per-label variant convention, but written for generating
// one section's content rather than planning the whole structure.
func systemPromptFor(label classifier.Label) string {
	if variant, ok := genVariants[label]; ok {
		return genHeader + variant + genFooter
	}
	return genHeader + genGenericVariant + genFooter
}

const genHeader = `You are writing one section of a repository's documentation. You have access to tools for reading source files, listing the directory tree, and searching the repository — use them to ground every claim in the actual source before writing.

`

const genFooter = `
Write the section in Markdown. Cite the files you read where relevant. When you are done, wrap the final content in <docs>...</docs> and emit nothing else outside the tags.`

var genVariants = map[classifier.Label]string{
	classifier.LabelFramework: `This is a framework. Write with an audience of developers building on top of it in mind — explain the abstractions they will extend or implement, not just what the code does internally.`,

	classifier.LabelLibrary: `This is a library. Write with an audience of developers consuming its public API in mind — show how the pieces are used, not just how they are implemented.`,

	classifier.LabelApplication: `This is a deployable application. Write with an audience of operators and integrators in mind — what this component does at runtime, and how other parts of the system interact with it.`,

	classifier.LabelCLITool: `This is a command-line tool. Write with an audience of end users running commands in mind — flags, arguments, and expected output.`,

	classifier.LabelDevelopmentTool: `This is a developer tool. Write with an audience of developers integrating it into their workflow in mind.`,

	classifier.LabelDocumentation: `This repository is itself documentation. Synthesize and organize the relevant existing material rather than describing source code structure.`,

	classifier.LabelDevopsConfiguration: `This is infrastructure-as-code or deployment configuration. Write with an audience of operators applying or modifying it in mind — what it provisions and what inputs it expects.`,
}

const genGenericVariant = `The repository's classification is unclear. Write a clear, accurate description of this section based on what the source actually contains.`

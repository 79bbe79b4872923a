// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package depanalysis parses source files with per-language regex
// parsers and assembles file- and function-level dependency trees with
// cycle detection (§4.4). Grounded on 
// pkg/ingestion/parser_interface.go (ParserModeSimplified — the
// regex/string-matching fallback, chosen here as the only mode since spec
// §4.4 mandates best-effort regex parsing outright) and
// pkg/ingestion/resolver.go's CallResolver (package/global-function/
// file-import indices), adapted from Go-only to six languages.
package depanalysis

import "strings"

// FunctionInfo is one function extracted from a source file.
type FunctionInfo struct {
	Name string
	Body string
}

// LanguageParser extracts structural facts from one language's source
// text. Parsers are regex-based and accept best-effort imprecision —
// missing multi-line constructs is allowed (§4.4).
type LanguageParser interface {
	ExtractImports(text string) []string
	ExtractFunctions(text string) []FunctionInfo
	ExtractFunctionCalls(body string) []string
	ResolveImportPath(imp, currentFile, repoRoot string) (string, bool)
	GetFunctionLineNumber(text, name string) int
}

// NodeKind distinguishes file and function nodes in a DependencyTree.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeFunction NodeKind = "function"
)

// DependencyTree is a node in the in-memory, never-persisted dependency
// graph (§3). Children are either the files a file imports or the
// functions a function calls.
type DependencyTree struct {
	Kind       NodeKind
	Name       string
	FullPath   string
	LineNumber int
	IsCyclic   bool
	Functions  []string // populated on file nodes only
	Children   []*DependencyTree
}

// MaxDepth bounds dependency-tree expansion (§4.4 default).
const MaxDepth = 10

func languageForPath(p string) LanguageParser {
	dot := strings.LastIndex(p, ".")
	if dot < 0 {
		return nil
	}
	ext := strings.ToLower(p[dot:])
	return parsersByExt[ext]
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"path/filepath"
	"regexp"
)

// cParser handles both C and C++ source; the two share #include syntax
// and close enough function-signature shape for a regex parser.
type cParser struct{}

var (
	cIncludeLocalRe  = regexp.MustCompile(`#include\s*"([^"]+)"`)
	cIncludeSystemRe = regexp.MustCompile(`#include\s*<([^>]+)>`)
	cFuncRe          = regexp.MustCompile(`(?m)^[\w:<>,\s*&]+[\s*&]+(\w+)\s*\([^;{]*\)\s*(?:const\s*)?\{`)
	cCallRe          = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:::[A-Za-z_][A-Za-z0-9_]*)?)\s*\(`)
)

func (cParser) ExtractImports(text string) []string {
	var out []string
	for _, m := range cIncludeLocalRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range cIncludeSystemRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func (cParser) ExtractFunctions(text string) []FunctionInfo {
	locs := cFuncRe.FindAllStringSubmatchIndex(text, -1)
	var out []FunctionInfo
	for i, loc := range locs {
		name := text[loc[2]:loc[3]]
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, FunctionInfo{Name: name, Body: text[start:end]})
	}
	return out
}

func (cParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range cCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ResolveImportPath resolves an include relative to the current file's
// directory. Quoted and angle-bracket includes are treated alike, so a
// system include resolves only when a file of that name sits beside the
// including file.
func (cParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	dir := filepath.Dir(currentFile)
	candidate := filepath.Join(dir, imp)
	return candidate, true
}

func (cParser) GetFunctionLineNumber(text, name string) int {
	return lineNumberOfMatch(text, regexp.MustCompile(`(?m)^[\w:<>,\s*&]+[\s*&]+`+regexp.QuoteMeta(name)+`\s*\(`))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"path/filepath"
	"regexp"
	"strings"
)

type pythonParser struct{}

var (
	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)(?:\s+as\s+\w+)?`)
	pyFromImportRe = regexp.MustCompile(`(?m)^\s*from\s+([\w.]*)\s+import\s+([\w, *]+)`)
	pyDefRe        = regexp.MustCompile(`(?m)^(?:\s*)def\s+(\w+)\s*\(`)
	pyCallRe       = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s*\(`)
)

func (pythonParser) ExtractImports(text string) []string {
	var out []string
	for _, m := range pyImportRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	// `from . import z` and `from pkg import x as y` forms: record the
	// module path; relative imports (leading dots) are kept as-is so the
	// resolver can detect them.
	for _, m := range pyFromImportRe.FindAllStringSubmatch(text, -1) {
		module := strings.TrimSpace(m[1])
		if module != "" {
			out = append(out, module)
		}
	}
	return out
}

func (pythonParser) ExtractFunctions(text string) []FunctionInfo {
	locs := pyDefRe.FindAllStringSubmatchIndex(text, -1)
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

func (pythonParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range pyCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func (pythonParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	if strings.HasPrefix(imp, ".") {
		// relative import: resolve against the current file's directory.
		dir := filepath.Dir(currentFile)
		rel := strings.TrimLeft(imp, ".")
		candidate := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(rel, ".", "/"))+".py")
		return candidate, true
	}
	candidate := filepath.Join(repoRoot, filepath.FromSlash(strings.ReplaceAll(imp, ".", "/"))+".py")
	return candidate, true
}

func (pythonParser) GetFunctionLineNumber(text, name string) int {
	return lineNumberOfMatch(text, regexp.MustCompile(`(?m)^(?:\s*)def\s+`+regexp.QuoteMeta(name)+`\s*\(`))
}

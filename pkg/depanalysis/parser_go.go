// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

type goParser struct{}

var (
	goImportBlockRe = regexp.MustCompile(`(?s)import\s*\(\s*(.*?)\s*\)`)
	goImportLineRe  = regexp.MustCompile(`import\s+"([^"]+)"`)
	goImportQuoteRe = regexp.MustCompile(`(?:(\w+)\s+)?"([^"]+)"`)
	goFuncRe        = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s+)?(\w+)\s*\(`)
	goCallRe        = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s*\(`)
)

func (goParser) ExtractImports(text string) []string {
	var out []string
	if m := goImportBlockRe.FindStringSubmatch(text); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			if sub := goImportQuoteRe.FindStringSubmatch(line); sub != nil {
				out = append(out, sub[2])
			}
		}
	}
	for _, m := range goImportLineRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func (goParser) ExtractFunctions(text string) []FunctionInfo {
	locs := goFuncRe.FindAllStringSubmatchIndex(text, -1)
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

func (goParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range goCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ResolveImportPath resolves a Go import path to the first non-test .go
// file under repoRoot whose directory matches the import path's trailing
// components (internal/widget for example.com/app/internal/widget). When
// no such file exists it falls back to repoRoot joined with the final
// path component — a best-effort heuristic, since module-aware
// resolution would require parsing go.mod.
func (goParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	if isStdlibGoImport(imp) {
		return "", false
	}
	last := imp
	if idx := strings.LastIndex(imp, "/"); idx >= 0 {
		last = imp[idx+1:]
	}
	candidate := filepath.Join(repoRoot, last)
	_ = filepath.WalkDir(repoRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".go" || strings.HasSuffix(p, "_test.go") {
			return nil
		}
		dir, relErr := filepath.Rel(repoRoot, filepath.Dir(p))
		dir = filepath.ToSlash(dir)
		if relErr == nil && dir != "." && (imp == dir || strings.HasSuffix(imp, "/"+dir)) {
			candidate = p
			return filepath.SkipAll
		}
		return nil
	})
	return candidate, true
}

func (goParser) GetFunctionLineNumber(text, name string) int {
	return lineNumberOfMatch(text, regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s+)?`+regexp.QuoteMeta(name)+`\s*\(`))
}

func isStdlibGoImport(imp string) bool {
	return !strings.Contains(imp, ".")
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"path/filepath"
	"regexp"
	"strings"
)

type javascriptParser struct{}

var (
	jsImportRe = regexp.MustCompile(`import\s+(?:[\w*{}\s,]+\s+from\s+)?["']([^"']+)["']`)
	jsRequireRe = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)
	jsFuncRe    = regexp.MustCompile(`(?:function\s+(\w+)\s*\(|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(?[^=]*\)?\s*=>|(\w+)\s*\([^)]*\)\s*\{)`)
	jsCallRe    = regexp.MustCompile(`\b([A-Za-z_$][A-Za-z0-9_$]*(?:\.[A-Za-z_$][A-Za-z0-9_$]*)?)\s*\(`)
)

func (javascriptParser) ExtractImports(text string) []string {
	var out []string
	for _, m := range jsImportRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range jsRequireRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func (javascriptParser) ExtractFunctions(text string) []FunctionInfo {
	locs := jsFuncRe.FindAllStringSubmatchIndex(text, -1)
	var out []FunctionInfo
	for i, loc := range locs {
		name := firstNonEmptyGroup(text, loc)
		if name == "" {
			continue
		}
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, FunctionInfo{Name: name, Body: text[start:end]})
	}
	return out
}

func firstNonEmptyGroup(text string, loc []int) string {
	for i := 1; i*2 < len(loc); i++ {
		if loc[i*2] >= 0 {
			return text[loc[i*2]:loc[i*2+1]]
		}
	}
	return ""
}

func (javascriptParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range jsCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func (javascriptParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	if !strings.HasPrefix(imp, ".") {
		return "", false // bare specifier: package import, not a repo file
	}
	dir := filepath.Dir(currentFile)
	return filepath.Join(dir, imp), true
}

func (javascriptParser) GetFunctionLineNumber(text, name string) int {
	pattern := `(?:function\s+` + regexp.QuoteMeta(name) + `\s*\(|(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=)`
	return lineNumberOfMatch(text, regexp.MustCompile(pattern))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"path/filepath"
	"regexp"
	"strings"
)

type csharpParser struct{}

var (
	csUsingRe  = regexp.MustCompile(`(?m)^\s*using\s+(?:static\s+)?([\w.]+)\s*;`)
	csMethodRe = regexp.MustCompile(`(?m)(?:public|private|protected|internal|static|virtual|override|async|\s)+[\w<>\[\],\s?]+\s+(\w+)\s*\([^)]*\)\s*\{`)
	csCallRe   = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s*\(`)
)

func (csharpParser) ExtractImports(text string) []string {
	var out []string
	for _, m := range csUsingRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func (csharpParser) ExtractFunctions(text string) []FunctionInfo {
	locs := csMethodRe.FindAllStringSubmatchIndex(text, -1)
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

func (csharpParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range csCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func (csharpParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	if strings.HasPrefix(imp, "System") {
		return "", false
	}
	candidate := filepath.Join(repoRoot, filepath.FromSlash(strings.ReplaceAll(imp, ".", "/"))+".cs")
	return candidate, true
}

func (csharpParser) GetFunctionLineNumber(text, name string) int {
	return lineNumberOfMatch(text, regexp.MustCompile(`\s+`+regexp.QuoteMeta(name)+`\s*\([^)]*\)\s*\{`))
}

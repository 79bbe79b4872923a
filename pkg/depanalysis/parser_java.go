// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"path/filepath"
	"regexp"
	"strings"
)

type javaParser struct{}

var (
	javaImportRe = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)(?:\.\*)?\s*;`)
	javaMethodRe = regexp.MustCompile(`(?m)(?:public|private|protected|static|final|\s)+[\w<>\[\],\s]+\s+(\w+)\s*\([^)]*\)\s*(?:throws\s+[\w,\s]+)?\s*\{`)
	javaCallRe   = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s*\(`)
)

func (javaParser) ExtractImports(text string) []string {
	var out []string
	for _, m := range javaImportRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func (javaParser) ExtractFunctions(text string) []FunctionInfo {
	locs := javaMethodRe.FindAllStringSubmatchIndex(text, -1)
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

func (javaParser) ExtractFunctionCalls(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range javaCallRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ResolveImportPath maps a fully-qualified Java import to a source file
// under repoRoot by turning package dots into directories — best-effort,
// assumes a conventional single-module source root.
func (javaParser) ResolveImportPath(imp, currentFile, repoRoot string) (string, bool) {
	if strings.HasPrefix(imp, "java.") || strings.HasPrefix(imp, "javax.") {
		return "", false
	}
	candidate := filepath.Join(repoRoot, filepath.FromSlash(strings.ReplaceAll(imp, ".", "/"))+".java")
	return candidate, true
}

func (javaParser) GetFunctionLineNumber(text, name string) int {
	return lineNumberOfMatch(text, regexp.MustCompile(`\s+`+regexp.QuoteMeta(name)+`\s*\([^)]*\)\s*(?:throws\s+[\w,\s]+)?\s*\{`))
}

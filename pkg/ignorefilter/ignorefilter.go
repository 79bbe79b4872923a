// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ignorefilter compiles gitignore-style rule sets and matches
// paths against them (§4.2). No pack example imports a dedicated
// gitignore-matching library; the rule set gitignore defines is small
// enough that a direct regex compiler, in  general style of
// hand-written text processing over stdlib packages, is the right fit.
package ignorefilter

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// defaultIgnores are compiled into every Filter regardless of caller
// input or discovered files (§4.2).
var defaultIgnores = []string{
	".git", "node_modules", "__pycache__", ".vscode",
	".DS_Store", "Thumbs.db", ".idea",
}

// Rule is one compiled gitignore pattern.
type Rule struct {
	source        string
	re            *regexp.Regexp
	negate        bool
	directoryOnly bool
	anchored      bool
}

// Filter matches relative paths against a precedence-ordered rule set:
// later rules override earlier ones, and negated rules (`!pattern`) can
// re-include a path an earlier rule excluded.
type Filter struct {
	rules []Rule
}

// New compiles the default ignores, then userRules, then the discovered
// .gitignore/.ignore content, in that order — so a .gitignore in the
// target tree can override both built-ins and explicit caller rules, per
// §4.2's "later rules overriding earlier ones".
func New(userRules []string, discovered []string) *Filter {
	f := &Filter{}
	f.addAll(defaultIgnores)
	f.addAll(userRules)
	f.addAll(discovered)
	return f
}

func (f *Filter) addAll(patterns []string) {
	for _, p := range patterns {
		if rule, ok := compileRule(p); ok {
			f.rules = append(f.rules, rule)
		}
	}
}

// compileRule parses one gitignore-syntax line into a Rule. Returns
// ok=false for blank lines and comments.
func compileRule(line string) (Rule, bool) {
	raw := line
	trimmed := strings.TrimRight(line, " ")
	if trimmed == "" || strings.HasPrefix(strings.TrimSpace(trimmed), "#") {
		return Rule{}, false
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = trimmed[1:]
	}
	// A literal leading "!" or "#" is escaped with a backslash in
	// gitignore syntax.
	trimmed = strings.TrimPrefix(trimmed, "\\")

	directoryOnly := strings.HasSuffix(trimmed, "/")
	if directoryOnly {
		trimmed = strings.TrimSuffix(trimmed, "/")
	}

	anchored := strings.Contains(trimmed, "/")
	pattern := strings.TrimPrefix(trimmed, "/")

	re, err := regexp.Compile(globToRegexp(pattern, anchored))
	if err != nil {
		return Rule{}, false
	}

	return Rule{source: raw, re: re, negate: negate, directoryOnly: directoryOnly, anchored: anchored}, true
}

// globToRegexp converts gitignore glob syntax (*, **, ?, [...]) to an
// anchored regexp matching a forward-slash-normalized relative path.
func globToRegexp(pattern string, anchored bool) string {
	var b strings.Builder
	b.WriteString("^")
	if !anchored {
		b.WriteString("(?:.*/)?")
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
				if i+1 < len(runes) && runes[i+1] == '/' {
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '(', ')', '+', '|', '^', '$':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString("(?:/.*)?$")
	return b.String()
}

// Match reports whether relPath (forward-slash, relative to the tree
// root, without a trailing slash) is ignored. isDir indicates whether the
// path is a directory, for directory-only rules.
func (f *Filter) Match(relPath string, isDir bool) bool {
	normalized := filepath.ToSlash(relPath)
	ignored := false
	for _, rule := range f.rules {
		if rule.directoryOnly && !isDir {
			continue
		}
		if rule.re.MatchString(normalized) {
			ignored = !rule.negate
		}
	}
	return ignored
}

// LoadDiscoverable reads .gitignore and .ignore files at root (non-
// recursive: callers invoke this once per directory while walking) and
// returns their lines verbatim for New's discovered parameter.
func LoadDiscoverable(root string) []string {
	var lines []string
	for _, name := range []string{".gitignore", ".ignore"} {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		f.Close()
	}
	return lines
}

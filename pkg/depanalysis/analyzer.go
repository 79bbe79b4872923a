// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// parsedFile holds the extraction results for one source file, cached so
// repeated tree expansions never re-read or re-parse the same file.
type parsedFile struct {
	path      string
	text      string
	parser    LanguageParser
	imports   []string
	functions []FunctionInfo
}

// Analyzer builds file- and function-level DependencyTrees for one
// repository checkout. It lazily indexes the tree on first use: the
// cmd/cie's CallResolver.BuildIndex runs once over every parsed entity
// up front, but here parsing itself is the expensive step, so indexing
// happens incrementally as files are visited and is cached for reuse
// across both AnalyzeFile and AnalyzeFunction calls.
type Analyzer struct {
	root string

	mu         sync.Mutex
	files      map[string]*parsedFile // path -> parsed
	funcOwners map[string][]string    // function name -> owning file paths
	indexed    bool
}

// NewAnalyzer creates an Analyzer rooted at a repository's local checkout
// path. All file paths passed to AnalyzeFile/AnalyzeFunction are relative
// to root.
func NewAnalyzer(root string) *Analyzer {
	return &Analyzer{
		root:       root,
		files:      make(map[string]*parsedFile),
		funcOwners: make(map[string][]string),
	}
}

func (a *Analyzer) absolute(relPath string) string {
	return filepath.Join(a.root, relPath)
}

// parse loads and parses one file, caching the result. Caller must hold a.mu.
func (a *Analyzer) parse(relPath string) (*parsedFile, error) {
	if pf, ok := a.files[relPath]; ok {
		return pf, nil
	}
	parser := languageForPath(relPath)
	if parser == nil {
		return nil, fmt.Errorf("depanalysis: %s: unsupported language", relPath)
	}
	raw, err := os.ReadFile(a.absolute(relPath))
	if err != nil {
		return nil, fmt.Errorf("depanalysis: reading %s: %w", relPath, err)
	}
	text := string(raw)
	pf := &parsedFile{
		path:      relPath,
		text:      text,
		parser:    parser,
		imports:   parser.ExtractImports(text),
		functions: parser.ExtractFunctions(text),
	}
	a.files[relPath] = pf
	for _, fn := range pf.functions {
		a.funcOwners[fn.Name] = append(a.funcOwners[fn.Name], relPath)
	}
	return pf, nil
}

// ensureIndexed walks the whole repository tree once, parsing every
// recognized source file so funcOwners reflects the full, repository-wide
// function index the way  CallResolver.BuildIndex does for
// Go packages. Caller must hold a.mu. Safe to call repeatedly; a no-op
// after the first successful walk.
func (a *Analyzer) ensureIndexed() {
	if a.indexed {
		return
	}
	a.indexed = true
	_ = filepath.Walk(a.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if languageForPath(rel) == nil {
			return nil
		}
		_, _ = a.parse(rel)
		return nil
	})
}

func functionNames(fns []FunctionInfo) []string {
	names := make([]string, 0, len(fns))
	for _, f := range fns {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// AnalyzeFile builds the file-level dependency tree rooted at relPath:
// children are the files it imports that resolve to a path inside the
// repository, expanded depth-first up to MaxDepth. A file revisited on
// its own ancestor chain is marked IsCyclic and not expanded further
// (§4.4).
func (a *Analyzer) AnalyzeFile(relPath string) (*DependencyTree, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	visiting := make(map[string]bool)
	return a.expandFile(relPath, 0, visiting)
}

func (a *Analyzer) expandFile(relPath string, depth int, visiting map[string]bool) (*DependencyTree, error) {
	pf, err := a.parse(relPath)
	if err != nil {
		return nil, err
	}
	node := &DependencyTree{
		Kind:      NodeFile,
		Name:      filepath.Base(relPath),
		FullPath:  relPath,
		Functions: functionNames(pf.functions),
	}
	if depth >= MaxDepth {
		return node, nil
	}
	visiting[relPath] = true
	defer delete(visiting, relPath)

	seen := make(map[string]bool)
	for _, imp := range pf.imports {
		candidate, ok := pf.parser.ResolveImportPath(imp, relPath, a.root)
		if !ok {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = a.absolute(candidate) // relative-import candidates are root-relative
		}
		rel, err := filepath.Rel(a.root, candidate)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, "..") {
			continue // resolves outside the repository
		}
		resolved := resolveExistingSourceFile(a.root, rel)
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true

		if visiting[resolved] {
			node.Children = append(node.Children, &DependencyTree{
				Kind:     NodeFile,
				Name:     filepath.Base(resolved),
				FullPath: resolved,
				IsCyclic: true,
			})
			continue
		}
		child, err := a.expandFile(resolved, depth+1, visiting)
		if err != nil {
			continue // best-effort: an unreadable import is dropped, not fatal
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// resolveExistingSourceFile probes a resolved import candidate against the
// file system, trying common extensions when the parser's guess omitted
// one (e.g. JS/TS specifiers that name a directory or extensionless file).
func resolveExistingSourceFile(root, rel string) string {
	candidates := []string{rel}
	if filepath.Ext(rel) == "" {
		for ext := range parsersByExt {
			candidates = append(candidates, rel+ext)
		}
		for ext := range parsersByExt {
			candidates = append(candidates, filepath.Join(rel, "index"+ext))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(filepath.Join(root, c)); err == nil && !info.IsDir() {
			return filepath.ToSlash(c)
		}
	}
	return ""
}

// AnalyzeFunction builds the function-level dependency tree rooted at the
// named function inside relPath: children are the functions it calls,
// resolved first within the same file, then within files it imports, then
// (best-effort) against any other indexed function with that name
// repository-wide. A name that resolves to more than one candidate and
// cannot be narrowed is kept as an unexpanded leaf stub rather than guessed
// at (§4.4 edge case).
func (a *Analyzer) AnalyzeFunction(relPath, name string) (*DependencyTree, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	visiting := make(map[string]bool)
	return a.expandFunction(relPath, name, 0, visiting)
}

type funcRef struct {
	path string
	name string
}

func (r funcRef) key() string { return r.path + "#" + r.name }

func (a *Analyzer) expandFunction(relPath, name string, depth int, visiting map[string]bool) (*DependencyTree, error) {
	pf, err := a.parse(relPath)
	if err != nil {
		return nil, err
	}
	var body string
	found := false
	for _, fn := range pf.functions {
		if fn.Name == name {
			body = fn.Body
			found = true
			break
		}
	}
	node := &DependencyTree{
		Kind:       NodeFunction,
		Name:       name,
		FullPath:   relPath,
		LineNumber: pf.parser.GetFunctionLineNumber(pf.text, name),
	}
	if !found || depth >= MaxDepth {
		return node, nil
	}

	self := funcRef{relPath, name}
	visiting[self.key()] = true
	defer delete(visiting, self.key())

	// Body opens with the function's own declaration; skip past the
	// declared name so it is not read back as a recursive call.
	if loc := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).FindStringIndex(body); loc != nil {
		body = body[loc[1]:]
	}

	seen := make(map[string]bool)
	for _, call := range pf.parser.ExtractFunctionCalls(body) {
		callee := strings.TrimPrefix(call, ".")
		if idx := strings.LastIndex(callee, "."); idx >= 0 {
			callee = callee[idx+1:]
		}
		ref, ambiguous := a.resolveCallee(pf, relPath, callee)
		if ref.path == "" {
			continue // unresolved: not in this file, its imports, or the index
		}
		if seen[ref.key()] {
			continue
		}
		seen[ref.key()] = true

		if ambiguous {
			node.Children = append(node.Children, &DependencyTree{
				Kind: NodeFunction,
				Name: callee,
			})
			continue
		}
		if visiting[ref.key()] {
			node.Children = append(node.Children, &DependencyTree{
				Kind:     NodeFunction,
				Name:     ref.name,
				FullPath: ref.path,
				IsCyclic: true,
			})
			continue
		}
		child, err := a.expandFunction(ref.path, ref.name, depth+1, visiting)
		if err != nil {
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// resolveCallee looks for a function named callee, preferring the calling
// file itself, then its direct imports, then falling back to a
// repository-wide index search. The bool return reports whether the name
// was ambiguous (more than one repository-wide owner) and so was left
// unexpanded.
func (a *Analyzer) resolveCallee(caller *parsedFile, callerPath, callee string) (funcRef, bool) {
	for _, fn := range caller.functions {
		if fn.Name == callee {
			return funcRef{callerPath, callee}, false
		}
	}

	for _, imp := range caller.imports {
		candidate, ok := caller.parser.ResolveImportPath(imp, callerPath, a.root)
		if !ok {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = a.absolute(candidate)
		}
		rel, err := filepath.Rel(a.root, candidate)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, "..") {
			continue
		}
		resolved := resolveExistingSourceFile(a.root, rel)
		if resolved == "" {
			continue
		}
		pf, err := a.parse(resolved)
		if err != nil {
			continue
		}
		for _, fn := range pf.functions {
			if fn.Name == callee {
				return funcRef{resolved, callee}, false
			}
		}
	}

	a.ensureIndexed()
	owners := a.funcOwners[callee]
	switch len(owners) {
	case 0:
		return funcRef{}, false
	case 1:
		return funcRef{owners[0], callee}, false
	default:
		return funcRef{owners[0], callee}, true
	}
}

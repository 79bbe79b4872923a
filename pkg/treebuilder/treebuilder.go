// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package treebuilder renders a compact textual directory listing for
// inclusion in LLM prompts (§4.3). The extension classification used to
// decide which subtrees to elide first is grounded on 
// detectLanguageFromPath (pkg/ingestion/repo_loader.go).
package treebuilder

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Entry is one file discovered in the tree, as produced by a workspace
// walk after ignorefilter has already excluded what it excludes.
type Entry struct {
	Path string // forward-slash, relative to the tree root
	Size int64
}

// DefaultMaxBytes is the size cap applied when Build's maxBytes is <= 0.
const DefaultMaxBytes = 32 * 1024

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".rs": true, ".cpp": true, ".c": true, ".h": true, ".hpp": true,
	".cc": true, ".cs": true, ".rb": true, ".php": true, ".swift": true, ".kt": true,
	".scala": true, ".sh": true, ".proto": true,
}

func isSourceFile(p string) bool {
	return sourceExtensions[strings.ToLower(path.Ext(p))]
}

type node struct {
	name     string
	isDir    bool
	size     int64
	children map[string]*node
	order    []string
}

func newDirNode(name string) *node {
	return &node{name: name, isDir: true, children: map[string]*node{}}
}

func (n *node) child(name string, isDir bool) *node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := &node{name: name, isDir: isDir, children: map[string]*node{}}
	n.children[name] = c
	n.order = append(n.order, name)
	sort.Slice(n.order, func(i, j int) bool {
		ci, cj := n.children[n.order[i]], n.children[n.order[j]]
		if ci.isDir != cj.isDir {
			return ci.isDir // directories first
		}
		return strings.ToLower(n.order[i]) < strings.ToLower(n.order[j])
	})
	return c
}

func buildTree(entries []Entry) *node {
	root := newDirNode("")
	for _, e := range entries {
		parts := strings.Split(path.Clean(e.Path), "/")
		cur := root
		for i, part := range parts {
			isDir := i < len(parts)-1
			cur = cur.child(part, isDir)
		}
		cur.size = e.Size
	}
	return root
}

// assetFraction returns the fraction of descendant files under n that are
// non-source (an "asset"), and the count of descendant files.
func assetFraction(n *node) (fraction float64, fileCount int) {
	var assets int
	var walk func(*node)
	walk = func(cur *node) {
		for _, name := range cur.order {
			c := cur.children[name]
			if c.isDir {
				walk(c)
				continue
			}
			fileCount++
			if !isSourceFile(name) {
				assets++
			}
		}
	}
	walk(n)
	if fileCount == 0 {
		return 0, 0
	}
	return float64(assets) / float64(fileCount), fileCount
}

// Build renders entries as a compact tree. If the rendered text exceeds
// maxBytes (DefaultMaxBytes if <= 0), subdirectories are collapsed
// breadth-first, preferring the most asset-heavy subdirectories, until the
// output fits (§4.3). Output is deterministic for a given input.
func Build(entries []Entry, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	root := buildTree(entries)

	collapsed := map[*node]bool{}
	text := render(root, collapsed)
	if len(text) <= maxBytes {
		return text
	}

	candidates := collectDirs(root, 0)
	sort.Slice(candidates, func(i, j int) bool {
		fi, _ := assetFraction(candidates[i].n)
		fj, _ := assetFraction(candidates[j].n)
		if fi != fj {
			return fi > fj
		}
		return candidates[i].depth < candidates[j].depth
	})

	for _, cand := range candidates {
		collapsed[cand.n] = true
		text = render(root, collapsed)
		if len(text) <= maxBytes {
			break
		}
	}
	return text
}

type dirCandidate struct {
	n     *node
	depth int
}

func collectDirs(n *node, depth int) []dirCandidate {
	var out []dirCandidate
	for _, name := range n.order {
		c := n.children[name]
		if !c.isDir {
			continue
		}
		out = append(out, dirCandidate{n: c, depth: depth})
		out = append(out, collectDirs(c, depth+1)...)
	}
	return out
}

func render(root *node, collapsed map[*node]bool) string {
	var b strings.Builder
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		for _, name := range n.order {
			c := n.children[name]
			indent := strings.Repeat("  ", depth)
			if c.isDir {
				if collapsed[c] {
					_, fileCount := assetFraction(c)
					fmt.Fprintf(&b, "%s%s/ … (%s files collapsed)\n", indent, c.name, humanize.Comma(int64(fileCount)))
					continue
				}
				fmt.Fprintf(&b, "%s%s/\n", indent, c.name)
				walk(c, depth+1)
			} else {
				fmt.Fprintf(&b, "%s%s\n", indent, c.name)
			}
		}
	}
	walk(root, 0)
	return b.String()
}

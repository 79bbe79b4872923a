// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestAnalyzeFile_FollowsGoImportsWithinRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", `package main

import "example.com/app/internal/widget"

func main() {
	widget.Run()
}
`)
	writeFile(t, root, "internal/widget/widget.go", `package widget

func Run() {
	helper()
}

func helper() {}
`)

	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFile("main.go")
	require.NoError(t, err)
	require.Equal(t, "main.go", tree.FullPath)
	require.Contains(t, tree.Functions, "main")
	require.Len(t, tree.Children, 1)
	require.Equal(t, "internal/widget/widget.go", tree.Children[0].FullPath)
	require.ElementsMatch(t, []string{"Run", "helper"}, tree.Children[0].Functions)
}

func TestAnalyzeFile_DetectsCycle(t *testing.T) {
	root := t.TempDir()
	// Local quoted includes resolve relative to the including file's own
	// directory, giving a deterministic cross-file cycle to exercise.
	writeFile(t, root, "a.c", `#include "b.c"

void a_entry() {}
`)
	writeFile(t, root, "b.c", `#include "a.c"

void b_entry() {}
`)
	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFile("a.c")
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "b.c", tree.Children[0].FullPath)
	require.Len(t, tree.Children[0].Children, 1)
	require.True(t, tree.Children[0].Children[0].IsCyclic)
	require.Equal(t, "a.c", tree.Children[0].Children[0].FullPath)
}

func TestAnalyzeFile_RespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	// Build a chain file0 -> file1 -> ... -> file12, each importing the next
	// by relative python-style import so resolution is file-path-local and
	// deterministic regardless of Go package semantics.
	const chainLen = 12
	for i := 0; i < chainLen; i++ {
		next := i + 1
		content := "import mod" + strconv.Itoa(next) + "\n\ndef step" + strconv.Itoa(i) + "():\n    pass\n"
		writeFile(t, root, "mod"+strconv.Itoa(i)+".py", content)
	}
	writeFile(t, root, "mod"+strconv.Itoa(chainLen)+".py", "def leaf():\n    pass\n")

	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFile("mod0.py")
	require.NoError(t, err)

	depth := 0
	node := tree
	for len(node.Children) > 0 {
		node = node.Children[0]
		depth++
	}
	require.LessOrEqual(t, depth, MaxDepth)
}

func TestAnalyzeFunction_ResolvesSameFileCallFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "svc.py", `def handler():
    validate()

def validate():
    pass
`)
	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFunction("svc.py", "handler")
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "validate", tree.Children[0].Name)
	require.Equal(t, "svc.py", tree.Children[0].FullPath)
	require.False(t, tree.Children[0].IsCyclic)
}

func TestAnalyzeFunction_DetectsRecursionCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "rec.py", `def countdown():
    countdown()
`)
	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFunction("rec.py", "countdown")
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.True(t, tree.Children[0].IsCyclic)
}

func TestAnalyzeFunction_AmbiguousNameLeftAsLeafStub(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "caller.py", `def entry():
    shared_name()
`)
	writeFile(t, root, "one.py", `def shared_name():
    pass
`)
	writeFile(t, root, "two.py", `def shared_name():
    pass
`)
	a := NewAnalyzer(root)
	tree, err := a.AnalyzeFunction("caller.py", "entry")
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "shared_name", tree.Children[0].Name)
	require.Empty(t, tree.Children[0].Children)
	require.Empty(t, tree.Children[0].FullPath)
}

func TestLanguageForPath_UnknownAndExtensionless(t *testing.T) {
	require.Nil(t, languageForPath("README"))
	require.Nil(t, languageForPath("data.unknownext"))
	require.NotNil(t, languageForPath("main.go"))
	require.NotNil(t, languageForPath("script.py"))
}

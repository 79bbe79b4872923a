// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package toolsurface

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/pkg/depanalysis"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestFileInfo_ReportsSizeExtensionAndLineCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	s := New(root, "tree", nil, nil)

	raw := s.fileInfo([]string{"main.go", "missing.go"})
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &out))

	var info fileInfoEntry
	require.NoError(t, json.Unmarshal(out["main.go"], &info))
	require.Equal(t, "main.go", info.Name)
	require.Equal(t, ".go", info.Extension)
	require.Equal(t, 3, info.TotalLines)

	var missing string
	require.NoError(t, json.Unmarshal(out["missing.go"], &missing))
	require.Equal(t, "not found", missing)

	require.Contains(t, s.Recorder.TouchedFiles(), "main.go")
	require.NotContains(t, s.Recorder.TouchedFiles(), "missing.go")
}

func TestReadFiles_ReturnsContentAndThresholdSentinel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "hello world")
	big := make([]byte, ReadThreshold+1)
	writeFile(t, root, "big.txt", string(big))
	s := New(root, "tree", nil, nil)

	raw := s.readFiles([]string{"small.txt", "big.txt"})
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	require.Equal(t, "hello world", out["small.txt"])
	require.Contains(t, out["big.txt"], "read_file_lines")
	require.Contains(t, s.Recorder.TouchedFiles(), "small.txt")
	require.NotContains(t, s.Recorder.TouchedFiles(), "big.txt")
}

func TestReadFileLines_RespectsOffsetAndCapsLimit(t *testing.T) {
	root := t.TempDir()
	var content string
	for i := 1; i <= 300; i++ {
		content += "line\n"
	}
	writeFile(t, root, "many.txt", content)
	s := New(root, "tree", nil, nil)

	out := s.readFileLines([]lineRangeItem{{Path: "many.txt", Offset: 10, Limit: 1000}})
	require.Contains(t, out, "11: line")
	require.NotContains(t, out, "\n311:")
}

func TestGetTree_ReturnsPrecomputedTree(t *testing.T) {
	s := New(t.TempDir(), "root/\n  main.go\n", nil, nil)
	result, fatal, err := s.Dispatch(context.Background(), llmgateway.ToolCall{Name: "get_tree"})
	require.NoError(t, err)
	require.False(t, fatal)
	require.Equal(t, "root/\n  main.go\n", result)
}

func TestAnalyzeFileDependencies_WithoutAnalyzerReturnsError(t *testing.T) {
	s := New(t.TempDir(), "", nil, nil)
	out := s.analyzeFileDependencies("main.go")
	require.Contains(t, out, "error")
}

func TestAnalyzeFileDependencies_WalksImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\nimport \"example.com/app/b\"\n\nfunc main() {}\n")
	writeFile(t, root, "b.go", "package b\n\nfunc Helper() {}\n")
	s := New(root, "", depanalysis.NewAnalyzer(root), nil)

	out := s.analyzeFileDependencies("a.go")
	var view depTreeView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Equal(t, "a.go", view.Path)
	require.Contains(t, s.Recorder.TouchedFiles(), "a.go")
}

func TestDispatch_UnknownToolIsFatal(t *testing.T) {
	s := New(t.TempDir(), "", nil, nil)
	_, fatal, err := s.Dispatch(context.Background(), llmgateway.ToolCall{Name: "nonexistent"})
	require.Error(t, err)
	require.True(t, fatal)
}

func TestDispatch_FileInfoRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.go", "package x\n")
	s := New(root, "", nil, nil)

	result, fatal, err := s.Dispatch(context.Background(), llmgateway.ToolCall{
		Name:  "file_info",
		Input: json.RawMessage(`{"paths": ["x.go"]}`),
	})
	require.NoError(t, err)
	require.False(t, fatal)
	require.Contains(t, result, "x.go")
}

type stubSearcher struct {
	hits []SearchHit
	err  error
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]SearchHit, error) {
	return s.hits, s.err
}

func TestSearch_ReturnsHitsAndRecordsPaths(t *testing.T) {
	searcher := &stubSearcher{hits: []SearchHit{{Path: "docs/readme.md", Snippet: "hi", Relevance: 0.9}}}
	s := New(t.TempDir(), "", nil, searcher)

	out := s.search(context.Background(), searchArgs{Query: "hi"})
	var hits []SearchHit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	require.Contains(t, s.Recorder.TouchedFiles(), "docs/readme.md")
}

func TestSearch_WithoutSearcherReturnsError(t *testing.T) {
	s := New(t.TempDir(), "", nil, nil)
	out := s.search(context.Background(), searchArgs{Query: "hi"})
	require.Contains(t, out, "error")
}

func TestToolDefinitions_CoversAllTools(t *testing.T) {
	defs := ToolDefinitions()
	names := make(map[string]bool)
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{"file_info", "read_files", "read_file_lines", "get_tree", "analyze_file_dependencies", "analyze_function_dependencies", "search"} {
		require.True(t, names[want], "missing tool %s", want)
	}
}

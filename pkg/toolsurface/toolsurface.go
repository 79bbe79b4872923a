// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package toolsurface exposes the Section Generator's file-read,
// file-info, tree, dependency-lookup, and RAG-search tools to the LLM
// Gateway (§4.6). Grounded on the pkg/tools package — same
// shape of "typed Go function exposed as a named tool with a JSON-schema
// parameter struct" — generalized from CozoScript-backed queries to a
// plain filesystem/dependency-tree/RAG tool set.
package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/docwiki/pkg/depanalysis"
	"github.com/kraklabs/docwiki/pkg/llmgateway"
)

// Searcher is the external RAG collaborator backing the search tool
// (§6). Implementations live outside this package; toolsurface only
// depends on the interface.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, minRelevance float64) ([]SearchHit, error)
}

// SearchHit is one RAG result.
type SearchHit struct {
	Path      string  `json:"path"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// ReadThreshold is the size, in bytes, above which read_files returns a
// sentinel instructing the caller to switch to read_file_lines (§4.6
// default: 100 KiB).
const ReadThreshold = 100 * 1024

// MaxLineLimit caps a single read_file_lines item's line count (§4.6).
const MaxLineLimit = 200

// Surface is the Section Generator's tool set for one repository
// checkout. Tree is the compact directory listing computed once for the
// generation run (§4.3); Analyzer resolves dependency-lookup tools;
// Searcher is nil when no RAG backend is configured, in which case
// search calls fail with a descriptive (non-fatal) result.
type Surface struct {
	Root     string
	Tree     string
	Analyzer *depanalysis.Analyzer
	Searcher Searcher
	Recorder *Recorder
}

// New builds a Surface rooted at a repository's local checkout, with a
// fresh Recorder scoped to the caller's generation run.
func New(root, tree string, analyzer *depanalysis.Analyzer, searcher Searcher) *Surface {
	return &Surface{
		Root:     root,
		Tree:     tree,
		Analyzer: analyzer,
		Searcher: searcher,
		Recorder: NewRecorder(),
	}
}

// Recorder tracks which files a generation run's tool calls touched,
// seeding FileItemSource rows for the active CatalogNode (§4.6).
type Recorder struct {
	touched map[string]bool
	order   []string
}

// NewRecorder returns an empty, per-CatalogNode-generation scoped
// recorder.
func NewRecorder() *Recorder {
	return &Recorder{touched: make(map[string]bool)}
}

// Touch records one file path as having been read or inspected.
func (r *Recorder) Touch(path string) {
	if r.touched[path] {
		return
	}
	r.touched[path] = true
	r.order = append(r.order, path)
}

// TouchedFiles returns the paths touched so far, in first-touch order.
func (r *Recorder) TouchedFiles() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ToolDefinitions returns the seven §4.6 tools in the shape the LLM
// Gateway sends to a provider.
func ToolDefinitions() []llmgateway.ToolDefinition {
	return []llmgateway.ToolDefinition{
		{
			Name:        "file_info",
			Description: "Get name, size, extension, line count, and modification time for one or more files.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"paths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "read_files",
			Description: "Read the full content of one or more files. Files over 100 KiB return a sentinel instructing use of read_file_lines instead.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"paths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "read_file_lines",
			Description: "Read a line range from one or more files. Offset is zero-based; limit caps at 200 lines.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"path":   map[string]any{"type": "string"},
								"offset": map[string]any{"type": "integer"},
								"limit":  map[string]any{"type": "integer"},
							},
							"required": []string{"path"},
						},
					},
				},
				"required": []string{"items"},
			},
		},
		{
			Name:        "get_tree",
			Description: "Get the compact directory listing for the repository.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "analyze_file_dependencies",
			Description: "Get the file-level import dependency tree rooted at a file.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "analyze_function_dependencies",
			Description: "Get the function-level call dependency tree rooted at a named function in a file.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
				},
				"required": []string{"path", "name"},
			},
		},
		{
			Name:        "search",
			Description: "Search the repository's knowledge base (RAG) for text relevant to a query.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":         map[string]any{"type": "string"},
					"limit":         map[string]any{"type": "integer"},
					"min_relevance": map[string]any{"type": "number"},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Dispatch implements llmgateway.ToolDispatcher, routing one tool call to
// its implementation and returning its result as the JSON text the model
// sees. An unknown tool name or an argument-unmarshal failure is fatal
// (the Gateway's tool loop aborts); a tool-level problem like a missing
// file is reported back to the model as text so it can adapt its plan.
func (s *Surface) Dispatch(ctx context.Context, call llmgateway.ToolCall) (string, bool, error) {
	switch call.Name {
	case "file_info":
		var args fileInfoArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal file_info args: %w", err)
		}
		return s.fileInfo(args.Paths), false, nil
	case "read_files":
		var args readFilesArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal read_files args: %w", err)
		}
		return s.readFiles(args.Paths), false, nil
	case "read_file_lines":
		var args readFileLinesArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal read_file_lines args: %w", err)
		}
		return s.readFileLines(args.Items), false, nil
	case "get_tree":
		return s.Tree, false, nil
	case "analyze_file_dependencies":
		var args analyzeFileArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal analyze_file_dependencies args: %w", err)
		}
		return s.analyzeFileDependencies(args.Path), false, nil
	case "analyze_function_dependencies":
		var args analyzeFunctionArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal analyze_function_dependencies args: %w", err)
		}
		return s.analyzeFunctionDependencies(args.Path, args.Name), false, nil
	case "search":
		var args searchArgs
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return "", true, fmt.Errorf("toolsurface: unmarshal search args: %w", err)
		}
		return s.search(ctx, args), false, nil
	default:
		return "", true, fmt.Errorf("toolsurface: unknown tool %q", call.Name)
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package toolsurface

import (
	"encoding/json"
	"fmt"

	"github.com/kraklabs/docwiki/pkg/depanalysis"
)

type analyzeFileArgs struct {
	Path string `json:"path"`
}

type analyzeFunctionArgs struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// depTreeView is the JSON shape the model sees for a DependencyTree node
// — same fields as depanalysis.DependencyTree, reshaped so Kind renders
// as a plain string and empty slices don't clutter the reply.
type depTreeView struct {
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Path       string         `json:"path"`
	LineNumber int            `json:"line,omitempty"`
	Cyclic     bool           `json:"cyclic,omitempty"`
	Functions  []string       `json:"functions,omitempty"`
	Children   []*depTreeView `json:"children,omitempty"`
}

func toDepTreeView(t *depanalysis.DependencyTree) *depTreeView {
	if t == nil {
		return nil
	}
	v := &depTreeView{
		Kind:       string(t.Kind),
		Name:       t.Name,
		Path:       t.FullPath,
		LineNumber: t.LineNumber,
		Cyclic:     t.IsCyclic,
		Functions:  t.Functions,
	}
	for _, c := range t.Children {
		v.Children = append(v.Children, toDepTreeView(c))
	}
	return v
}

func (s *Surface) analyzeFileDependencies(path string) string {
	if s.Analyzer == nil {
		return `{"error": "dependency analysis is not enabled for this repository"}`
	}
	tree, err := s.Analyzer.AnalyzeFile(path)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	s.Recorder.Touch(path)
	out, err := json.Marshal(toDepTreeView(tree))
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

func (s *Surface) analyzeFunctionDependencies(path, name string) string {
	if s.Analyzer == nil {
		return `{"error": "dependency analysis is not enabled for this repository"}`
	}
	tree, err := s.Analyzer.AnalyzeFunction(path, name)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	s.Recorder.Touch(path)
	out, err := json.Marshal(toDepTreeView(tree))
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/docwiki/pkg/ignorefilter"
	"github.com/kraklabs/docwiki/pkg/treebuilder"
)

// buildTree walks localPath, excludes what ignorefilter excludes, and
// renders the result with treebuilder (§4.2, §4.3).
func buildTree(localPath string, maxBytes int) (string, error) {
	filter := ignorefilter.New(nil, ignorefilter.LoadDiscoverable(localPath))

	var entries []treebuilder.Entry
	err := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == localPath {
			return nil
		}
		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if filter.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, treebuilder.Entry{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return "", err
	}
	return treebuilder.Build(entries, maxBytes), nil
}

var readmeNames = []string{"README.md", "README.rst", "README.txt", "README"}

// readReadme returns the content of the first README-like file found at
// localPath's root, or "" if none exists.
func readReadme(localPath string) string {
	entries, err := os.ReadDir(localPath)
	if err != nil {
		return ""
	}
	byLower := map[string]string{}
	for _, e := range entries {
		if !e.IsDir() {
			byLower[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, want := range readmeNames {
		if actual, ok := byLower[strings.ToLower(want)]; ok {
			data, err := os.ReadFile(filepath.Join(localPath, actual))
			if err == nil {
				return string(data)
			}
		}
	}
	return ""
}

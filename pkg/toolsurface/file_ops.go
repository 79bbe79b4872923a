// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package toolsurface

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type fileInfoArgs struct {
	Paths []string `json:"paths"`
}

type fileInfoEntry struct {
	Name       string `json:"name"`
	Size       string `json:"size"`
	Extension  string `json:"extension"`
	TotalLines int    `json:"total_lines"`
	ModTime    string `json:"mtime"`
}

func (s *Surface) fileInfo(paths []string) string {
	out := make(map[string]any, len(paths))
	for _, p := range paths {
		abs := filepath.Join(s.Root, p)
		info, err := os.Stat(abs)
		if err != nil {
			out[p] = "not found"
			continue
		}
		s.Recorder.Touch(p)
		lines := 0
		if f, err := os.Open(abs); err == nil {
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			for scanner.Scan() {
				lines++
			}
			f.Close()
		}
		out[p] = fileInfoEntry{
			Name:       filepath.Base(p),
			Size:       humanize.Bytes(uint64(info.Size())),
			Extension:  strings.ToLower(filepath.Ext(p)),
			TotalLines: lines,
			ModTime:    info.ModTime().UTC().Format(time.RFC3339),
		}
	}
	return marshalOrErr(out)
}

type readFilesArgs struct {
	Paths []string `json:"paths"`
}

func (s *Surface) readFiles(paths []string) string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		abs := filepath.Join(s.Root, p)
		info, err := os.Stat(abs)
		if err != nil {
			out[p] = "not found"
			continue
		}
		if info.Size() > ReadThreshold {
			out[p] = fmt.Sprintf("file is %s, over the %s read_files threshold; use read_file_lines instead",
				humanize.Bytes(uint64(info.Size())), humanize.Bytes(ReadThreshold))
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			out[p] = fmt.Sprintf("error reading file: %v", err)
			continue
		}
		s.Recorder.Touch(p)
		out[p] = string(content)
	}
	return marshalOrErr(out)
}

type lineRangeItem struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

type readFileLinesArgs struct {
	Items []lineRangeItem `json:"items"`
}

func (s *Surface) readFileLines(items []lineRangeItem) string {
	var b strings.Builder
	for _, item := range items {
		limit := item.Limit
		if limit <= 0 || limit > MaxLineLimit {
			limit = MaxLineLimit
		}
		offset := item.Offset
		if offset < 0 {
			offset = 0
		}

		abs := filepath.Join(s.Root, item.Path)
		f, err := os.Open(abs)
		if err != nil {
			fmt.Fprintf(&b, "=== %s ===\nnot found\n\n", item.Path)
			continue
		}
		s.Recorder.Touch(item.Path)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		fmt.Fprintf(&b, "=== %s (from line %d) ===\n", item.Path, offset+1)
		lineNum := 0
		emitted := 0
		for scanner.Scan() {
			if lineNum >= offset && emitted < limit {
				fmt.Fprintf(&b, "%d: %s\n", lineNum+1, scanner.Text())
				emitted++
			}
			lineNum++
			if emitted >= limit {
				break
			}
		}
		f.Close()
		b.WriteString("\n")
	}
	return b.String()
}

func marshalOrErr(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

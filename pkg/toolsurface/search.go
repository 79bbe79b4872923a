// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"
)

type searchArgs struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit"`
	MinRelevance float64 `json:"min_relevance"`
}

// DefaultSearchLimit caps the number of RAG hits returned when the model
// doesn't specify one.
const DefaultSearchLimit = 10

func (s *Surface) search(ctx context.Context, args searchArgs) string {
	if s.Searcher == nil {
		return `{"error": "no search backend is configured for this repository"}`
	}
	if args.Query == "" {
		return `{"error": "query is required"}`
	}
	limit := args.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := s.Searcher.Search(ctx, args.Query, limit, args.MinRelevance)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	for _, h := range hits {
		s.Recorder.Touch(h.Path)
	}
	out, err := json.Marshal(hits)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

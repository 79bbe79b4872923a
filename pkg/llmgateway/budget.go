// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"fmt"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// modelBudget is one entry in the static token-budget table (§4.5).
type modelBudget struct {
	ContextWindow  int
	ReservedOutput int
}

// budgets is the static model id -> context window table consulted before
// every call. Unlisted models are not bounded — the request proceeds and
// the provider's own error surfaces if it truncates or rejects.
var budgets = map[string]modelBudget{
	"gpt-4o":                     {ContextWindow: 128_000, ReservedOutput: 4_096},
	"gpt-4o-mini":                {ContextWindow: 128_000, ReservedOutput: 4_096},
	"gpt-4-turbo":                {ContextWindow: 128_000, ReservedOutput: 4_096},
	"claude-3-5-sonnet-20241022": {ContextWindow: 200_000, ReservedOutput: 8_192},
	"claude-3-5-haiku-20241022":  {ContextWindow: 200_000, ReservedOutput: 8_192},
	"claude-3-opus-20240229":     {ContextWindow: 200_000, ReservedOutput: 4_096},
	"claude-sonnet-4-5-20250514": {ContextWindow: 200_000, ReservedOutput: 8_192},
}

// EstimateTokens is a best-effort heuristic (≈4 characters per token,
// the same rough ratio  MockProvider uses for its usage
// counters) — good enough to guard against gross CONTEXT_OVERFLOW, not a
// tokenizer replacement.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

func estimateRequestTokens(req ChatRequest) int {
	total := 0
	for _, m := range req.Messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

// checkBudget fails fast with CONTEXT_OVERFLOW when the estimated prompt
// would exceed the model's context window minus its reserved output
// allowance, rather than risking server-side truncation (§4.5).
func checkBudget(model string, promptTokens int) error {
	b, ok := budgets[model]
	if !ok {
		return nil
	}
	limit := b.ContextWindow - b.ReservedOutput
	if promptTokens > limit {
		return wikierrors.New(wikierrors.KindValidation, wikierrors.CodeContextOverflow,
			fmt.Sprintf("prompt estimated at %d tokens exceeds %s's usable window of %d", promptTokens, model, limit),
			"", nil)
	}
	return nil
}

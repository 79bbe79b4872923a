// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abc"))
	require.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestCheckBudget_PassesWithinWindow(t *testing.T) {
	require.NoError(t, checkBudget("gpt-4o-mini", 1000))
}

func TestCheckBudget_FailsOverWindow(t *testing.T) {
	err := checkBudget("gpt-4o-mini", 200_000)
	require.Error(t, err)
	werr, ok := wikierrors.As(err)
	require.True(t, ok)
	require.Equal(t, wikierrors.CodeContextOverflow, werr.Code)
	require.False(t, werr.Retryable)
}

func TestCheckBudget_UnlistedModelPassesThrough(t *testing.T) {
	require.NoError(t, checkBudget("some-unknown-model", 10_000_000))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package wikierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	e := New(KindExternalFatal, CodeAuthRequired, "clone failed", "no credentials", nil)
	assert.Equal(t, "clone failed", e.Error())

	wrapped := New(KindInternal, "", "boom", "", fmt.Errorf("underlying"))
	assert.Equal(t, "boom: underlying", wrapped.Error())
}

func TestExitCodeAndHTTPStatus(t *testing.T) {
	cases := []struct {
		kind       Kind
		exit       int
		httpStatus int
	}{
		{KindValidation, 4, 400},
		{KindAuth, 5, 403},
		{KindExternalTransient, 3, 503},
		{KindExternalFatal, 3, 502},
		{KindDataIntegrity, 2, 422},
		{KindInternal, 10, 500},
	}
	for _, c := range cases {
		e := New(c.kind, "", "msg", "", nil)
		assert.Equal(t, c.exit, e.ExitCode(), "kind %s", c.kind)
		assert.Equal(t, c.httpStatus, e.HTTPStatus(), "kind %s", c.kind)
	}
}

func TestRetryableOnlyForExternalTransient(t *testing.T) {
	assert.True(t, New(KindExternalTransient, "", "x", "", nil).Retryable)
	assert.False(t, New(KindExternalFatal, "", "x", "", nil).Retryable)
}

func TestAsUnwrapsChain(t *testing.T) {
	base := New(KindDataIntegrity, CodeCycle, "cycle detected", "", nil)
	wrapped := fmt.Errorf("outline failed: %w", base)

	found, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeCycle, found.Code)

	_, ok = As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestIsKind(t *testing.T) {
	base := New(KindAuth, CodeAuthRequired, "nope", "", nil)
	assert.True(t, IsKind(base, KindAuth))
	assert.False(t, IsKind(base, KindInternal))
}

func TestToJSONOmitsEmptyCause(t *testing.T) {
	e := New(KindValidation, CodeDuplicate, "duplicate repository", "", nil)
	j := e.ToJSON()
	assert.Equal(t, "validation", j.Kind)
	assert.Equal(t, CodeDuplicate, j.Code)
	assert.Empty(t, j.Cause)
}

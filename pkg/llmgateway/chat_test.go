// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/internal/wikierrors"
)

type fakeProvider struct {
	responses []*ChatResponse
	errs      []error
	calls     int
}

func (f *fakeProvider) name() string { return "fake" }

func (f *fakeProvider) send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return f.responses[i], nil
}

func (f *fakeProvider) stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	resp, err := f.send(ctx, req)
	if err == nil && resp != nil && onDelta != nil {
		onDelta(resp.Message.Content)
	}
	return resp, err
}

func newTestGateway(p provider) *Gateway {
	return newGatewayWithProvider(p, nil, observability.NewTestMetrics(), nil, DefaultHopCap)
}

func TestChat_ReturnsDirectlyWhenNoToolCalls(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{{Message: Message{Role: "assistant", Content: "hello"}}}}
	g := newTestGateway(p)

	resp, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Message.Content)
	require.Equal(t, 1, p.calls)
}

type stubDispatcher struct {
	result string
	fatal  bool
	err    error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, call ToolCall) (string, bool, error) {
	return d.result, d.fatal, d.err
}

func TestChat_RunsToolLoopUntilNoMoreToolCalls(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{
		{Message: Message{Role: "assistant", ToolCalls: []ToolCall{{ID: "1", Name: "search", Input: json.RawMessage(`{}`)}}}},
		{Message: Message{Role: "assistant", Content: "final answer"}},
	}}
	g := newTestGateway(p)
	d := &stubDispatcher{result: "tool result"}

	resp, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, d)
	require.NoError(t, err)
	require.Equal(t, "final answer", resp.Message.Content)
	require.Equal(t, 2, p.calls)
}

func TestChat_ToolCallsWithoutDispatcherIsAnError(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{
		{Message: Message{Role: "assistant", ToolCalls: []ToolCall{{ID: "1", Name: "search"}}}},
	}}
	g := newTestGateway(p)

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	require.Error(t, err)
}

func TestChat_FatalToolErrorAbortsLoop(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{
		{Message: Message{Role: "assistant", ToolCalls: []ToolCall{{ID: "1", Name: "search"}}}},
	}}
	g := newTestGateway(p)
	d := &stubDispatcher{fatal: true, err: wikierrors.New(wikierrors.KindExternalFatal, "", "boom", "", nil)}

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, d)
	require.Error(t, err)
	require.Equal(t, 1, p.calls)
}

func TestChat_RetriesTransientErrorThenSucceeds(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{wikierrors.New(wikierrors.KindExternalTransient, "", "rate limited", "", nil)},
		responses: []*ChatResponse{nil, {Message: Message{Role: "assistant", Content: "ok"}}},
	}
	g := newTestGateway(p)

	resp, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Message.Content)
	require.Equal(t, 2, p.calls)
}

func TestChat_DoesNotRetryNonTransientError(t *testing.T) {
	p := &fakeProvider{
		errs: []error{wikierrors.New(wikierrors.KindAuth, wikierrors.CodeAuthRequired, "unauthorized", "", nil)},
	}
	g := newTestGateway(p)

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	require.Error(t, err)
	require.Equal(t, 1, p.calls)
}

func TestChat_ContextOverflowFailsFastWithoutCallingProvider(t *testing.T) {
	p := &fakeProvider{}
	g := newTestGateway(p)

	huge := make([]byte, 1_000_000)
	for i := range huge {
		huge[i] = 'a'
	}
	req := ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: string(huge)}},
	}
	_, err := g.Chat(context.Background(), req, nil)
	require.Error(t, err)
	werr, ok := wikierrors.As(err)
	require.True(t, ok)
	require.Equal(t, wikierrors.CodeContextOverflow, werr.Code)
	require.Equal(t, 0, p.calls)
}

func TestStreamChat_InvokesOnDeltaWithFinalContent(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{{Message: Message{Role: "assistant", Content: "streamed text"}}}}
	g := newTestGateway(p)

	var collected string
	resp, err := g.StreamChat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, nil, func(s string) {
		collected += s
	})
	require.NoError(t, err)
	require.Equal(t, "streamed text", resp.Message.Content)
	require.Equal(t, "streamed text", collected)
}

func TestChat_HopCapExceededReturnsError(t *testing.T) {
	responses := make([]*ChatResponse, 0, DefaultHopCap+1)
	for i := 0; i < DefaultHopCap+1; i++ {
		responses = append(responses, &ChatResponse{
			Message: Message{Role: "assistant", ToolCalls: []ToolCall{{ID: "x", Name: "loop"}}},
		})
	}
	p := &fakeProvider{responses: responses}
	g := newTestGateway(p)
	d := &stubDispatcher{result: "again"}

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}, d)
	require.Error(t, err)
	werr, ok := wikierrors.As(err)
	require.True(t, ok)
	require.Equal(t, "TOOL_HOP_CAP_EXCEEDED", werr.Code)
}

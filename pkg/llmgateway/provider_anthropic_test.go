// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/docwiki/internal/config"
)

func TestAnthropicProvider_SendSeparatesSystemMessageAndParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		var payload anthropicRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "be terse", payload.System)
		require.Len(t, payload.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "hi there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.ProviderConfig{Type: "anthropic", Endpoint: srv.URL, APIKey: "secret"})
	resp, err := p.send(context.Background(), ChatRequest{
		Model: "claude-3-5-sonnet",
		Messages: []Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "hi there", resp.Message.Content)
	require.Equal(t, "end_turn", resp.StopReason)
	require.Equal(t, 16, resp.TotalTokens)
}

func TestAnthropicProvider_SendMapsToolUseBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"q": "x"}}
			],
			"stop_reason": "tool_use"
		}`))
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.ProviderConfig{Type: "anthropic", Endpoint: srv.URL, APIKey: "k"})
	resp, err := p.send(context.Background(), ChatRequest{Model: "claude-3-5-sonnet", Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	require.Equal(t, "let me check", resp.Message.Content)
	require.Len(t, resp.Message.ToolCalls, 1)
	require.Equal(t, "search", resp.Message.ToolCalls[0].Name)
	require.JSONEq(t, `{"q":"x"}`, string(resp.Message.ToolCalls[0].Input))
}

func TestAnthropicProvider_ToolResultRoundTripsAsUserMessage(t *testing.T) {
	_, msgs := toAnthropicMessages([]Message{
		{Role: "tool", ToolCallID: "toolu_1", Content: "result text"},
	})
	require.Len(t, msgs, 1)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "tool_result", msgs[0].Content[0].Type)
	require.Equal(t, "toolu_1", msgs[0].Content[0].ToolUseID)
}

func TestAnthropicProvider_SendClassifiesServerErrorAsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.ProviderConfig{Type: "anthropic", Endpoint: srv.URL, APIKey: "k"})
	_, err := p.send(context.Background(), ChatRequest{Model: "claude-3-5-sonnet"})
	require.Error(t, err)
	require.True(t, retryableError(err))
}

func TestAnthropicProvider_StreamAccumulatesTextAndToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
			`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"search"}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"x\"}"}}`,
			`{"type":"message_delta","delta":{"stop_reason":"tool_use"}}`,
		}
		for _, e := range events {
			_, _ = w.Write([]byte("data: " + e + "\n\n"))
		}
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.ProviderConfig{Type: "anthropic", Endpoint: srv.URL, APIKey: "k"})
	var got string
	resp, err := p.stream(context.Background(), ChatRequest{Model: "claude-3-5-sonnet"}, func(s string) { got += s })
	require.NoError(t, err)
	require.Equal(t, "Hello", got)
	require.Equal(t, "Hello", resp.Message.Content)
	require.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.Message.ToolCalls, 1)
	require.JSONEq(t, `{"q":"x"}`, string(resp.Message.ToolCalls[0].Input))
}

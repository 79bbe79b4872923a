// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// anthropicProvider speaks the Anthropic messages API: system prompt
// separated from the message list, x-api-key/anthropic-version headers.
// Grounded on theRebelliousNerd-codenerd's AnthropicClient
// (CompleteWithTools/CompleteWithStreaming request shape and header set).
type anthropicProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

const anthropicVersion = "2023-06-01"

func newAnthropicProvider(cfg config.ProviderConfig) *anthropicProvider {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &anthropicProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *anthropicProvider) name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// toAnthropicMessages splits out any system message (Anthropic carries it
// in a separate top-level field) and translates assistant tool_calls /
// role="tool" results into Anthropic's tool_use/tool_result content
// blocks.
func toAnthropicMessages(msgs []Message) (system string, out []anthropicMessage) {
	for _, m := range msgs {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "tool":
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Text:      m.Content,
				}},
			})
		case "assistant":
			am := anthropicMessage{Role: "assistant"}
			if m.Content != "" {
				am.Content = append(am.Content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				am.Content = append(am.Content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Input,
				})
			}
			out = append(out, am)
		default:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}
	return system, out
}

func toAnthropicTools(tools []ToolDefinition) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

func (p *anthropicProvider) buildRequest(req ChatRequest, stream bool) anthropicRequest {
	system, messages := toAnthropicMessages(req.Messages)
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return anthropicRequest{
		Model:       req.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Tools:       toAnthropicTools(req.Tools),
		Stream:      stream,
	}
}

func (p *anthropicProvider) newHTTPRequest(ctx context.Context, payload anthropicRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "marshal anthropic request", "", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "build anthropic request", "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	return httpReq, nil
}

func (p *anthropicProvider) send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "anthropic request failed", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "read anthropic response", "", err)
	}
	if err := classifyAnthropicStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, "", "parse anthropic response", string(body), err)
	}
	if parsed.Error != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, "", parsed.Error.Message, parsed.Error.Type, nil)
	}

	out := &ChatResponse{
		StopReason:   parsed.StopReason,
		PromptTokens: parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	out.Message.Role = "assistant"
	var text strings.Builder
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.Message.ToolCalls = append(out.Message.ToolCalls, ToolCall{
				ID: block.ID, Name: block.Name, Input: block.Input,
			})
		}
	}
	out.Message.Content = text.String()
	return out, nil
}

func classifyAnthropicStatus(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return wikierrors.New(wikierrors.KindAuth, wikierrors.CodeAuthRequired, "anthropic authentication failed", string(body), nil)
	case status == http.StatusTooManyRequests:
		return wikierrors.New(wikierrors.KindExternalTransient, "", "anthropic rate limited", string(body), nil)
	case status >= 500 && status <= 504:
		return wikierrors.New(wikierrors.KindExternalTransient, "", fmt.Sprintf("anthropic server error %d", status), string(body), nil)
	default:
		return wikierrors.New(wikierrors.KindExternalFatal, "", fmt.Sprintf("anthropic request failed with status %d", status), string(body), nil)
	}
}

// stream follows client_anthropic.go's CompleteWithStreaming: scan SSE
// lines, decode content_block_delta events for text, and accumulate
// tool_use blocks announced via content_block_start/content_block_delta
// (input_json_delta) so the final ChatResponse carries both the streamed
// text and any tool calls the model made mid-stream.
func (p *anthropicProvider) stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	httpReq, err := p.newHTTPRequest(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "anthropic stream request failed", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyAnthropicStatus(resp.StatusCode, body)
	}

	var text strings.Builder
	var toolCalls []ToolCall
	blockKind := map[int]string{}
	blockToolIdx := map[int]int{}
	var stopReason string

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var evt struct {
			Type         string `json:"type"`
			Index        int    `json:"index"`
			ContentBlock *struct {
				Type string `json:"type"`
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"content_block,omitempty"`
			Delta *struct {
				Type        string `json:"type"`
				Text        string `json:"text,omitempty"`
				PartialJSON string `json:"partial_json,omitempty"`
				StopReason  string `json:"stop_reason,omitempty"`
			} `json:"delta,omitempty"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error,omitempty"`
		}
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		if evt.Error != nil {
			return nil, wikierrors.New(wikierrors.KindExternalFatal, "", evt.Error.Message, "", nil)
		}

		switch evt.Type {
		case "content_block_start":
			if evt.ContentBlock != nil {
				blockKind[evt.Index] = evt.ContentBlock.Type
				if evt.ContentBlock.Type == "tool_use" {
					toolCalls = append(toolCalls, ToolCall{ID: evt.ContentBlock.ID, Name: evt.ContentBlock.Name})
					blockToolIdx[evt.Index] = len(toolCalls) - 1
				}
			}
		case "content_block_delta":
			if evt.Delta == nil {
				continue
			}
			switch blockKind[evt.Index] {
			case "tool_use":
				i := blockToolIdx[evt.Index]
				toolCalls[i].Input = json.RawMessage(string(toolCalls[i].Input) + evt.Delta.PartialJSON)
			default:
				if evt.Delta.Text != "" {
					text.WriteString(evt.Delta.Text)
					if onDelta != nil {
						onDelta(evt.Delta.Text)
					}
				}
			}
		case "message_delta":
			if evt.Delta != nil && evt.Delta.StopReason != "" {
				stopReason = evt.Delta.StopReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "anthropic stream read failed", "", err)
	}

	return &ChatResponse{
		Message: Message{
			Role:      "assistant",
			Content:   text.String(),
			ToolCalls: toolCalls,
		},
		StopReason: stopReason,
	}, nil
}

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

// openaiProvider speaks the OpenAI chat-completions wire format, shared by
// any OpenAI-compatible endpoint — grounded on 
// openaiProvider in pkg/llm/provider.go. endpointURL and authorize are
// factored out so azureProvider (provider_azure.go) can reuse the same
// payload construction and response parsing against a different URL shape
// and auth header.
type openaiProvider struct {
	endpointURL string
	authorize   func(*http.Request)
	client      *http.Client
}

func newOpenAIProvider(cfg config.ProviderConfig) *openaiProvider {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	apiKey := cfg.APIKey
	return &openaiProvider{
		endpointURL: baseURL + "/chat/completions",
		authorize: func(req *http.Request) {
			if apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+apiKey)
			}
		},
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *openaiProvider) name() string { return "openai" }

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openaiTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

func toOpenAIMessages(msgs []Message) []openaiMessage {
	out := make([]openaiMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openaiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			otc := openaiToolCall{ID: tc.ID, Type: "function"}
			otc.Function.Name = tc.Name
			otc.Function.Arguments = string(tc.Input)
			om.ToolCalls = append(om.ToolCalls, otc)
		}
		out = append(out, om)
	}
	return out
}

func toOpenAITools(tools []ToolDefinition) []openaiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openaiTool, 0, len(tools))
	for _, t := range tools {
		ot := openaiTool{Type: "function"}
		ot.Function.Name = t.Name
		ot.Function.Description = t.Description
		ot.Function.Parameters = t.InputSchema
		out = append(out, ot)
	}
	return out
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Role      string           `json:"role"`
			Content   string           `json:"content"`
			ToolCalls []openaiToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openaiProvider) endpoint() string { return p.endpointURL }

func (p *openaiProvider) send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := openaiChatRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Tools:       toOpenAITools(req.Tools),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "marshal openai request", "", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "build openai request", "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "openai request failed", "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "read openai response", "", err)
	}

	if err := classifyOpenAIStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var parsed openaiChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, "", "parse openai response", string(respBody), err)
	}
	if parsed.Error != nil {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, "", parsed.Error.Message, parsed.Error.Type, nil)
	}
	if len(parsed.Choices) == 0 {
		return nil, wikierrors.New(wikierrors.KindExternalFatal, "", "openai returned no choices", "", nil)
	}

	choice := parsed.Choices[0]
	out := &ChatResponse{
		Message: Message{
			Role:    "assistant",
			Content: choice.Message.Content,
		},
		StopReason:   choice.FinishReason,
		PromptTokens: parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		TotalTokens:  parsed.Usage.TotalTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Message.ToolCalls = append(out.Message.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func classifyOpenAIStatus(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return wikierrors.New(wikierrors.KindAuth, wikierrors.CodeAuthRequired, "openai authentication failed", string(body), nil)
	case status == http.StatusTooManyRequests:
		return wikierrors.New(wikierrors.KindExternalTransient, "", "openai rate limited", string(body), nil)
	case status >= 500 && status <= 504:
		return wikierrors.New(wikierrors.KindExternalTransient, "", fmt.Sprintf("openai server error %d", status), string(body), nil)
	default:
		return wikierrors.New(wikierrors.KindExternalFatal, "", fmt.Sprintf("openai request failed with status %d", status), string(body), nil)
	}
}

// stream reads Server-Sent Events from the chat-completions streaming
// endpoint, invoking onDelta for each incremental content fragment, and
// returns the same normalized ChatResponse a non-streaming call would once
// the stream ends (the CompleteWithStreaming shape in
// client_anthropic.go, adapted to OpenAI's delta/choices event envelope).
func (p *openaiProvider) stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	payload := openaiChatRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Tools:       toOpenAITools(req.Tools),
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "marshal openai request", "", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindInternal, "", "build openai request", "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "openai stream request failed", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, classifyOpenAIStatus(resp.StatusCode, respBody)
	}

	var content strings.Builder
	var toolCalls []ToolCall
	toolCallIdx := map[int]int{} // openai delta index -> toolCalls slice index
	var finishReason string

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
		if data == "[DONE]" {
			break
		}

		var evt struct {
			Choices []struct {
				Delta struct {
					Content   string `json:"content"`
					ToolCalls []struct {
						Index    int    `json:"index"`
						ID       string `json:"id"`
						Function struct {
							Name      string `json:"name"`
							Arguments string `json:"arguments"`
						} `json:"function"`
					} `json:"tool_calls"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		for _, c := range evt.Choices {
			if c.Delta.Content != "" {
				content.WriteString(c.Delta.Content)
				if onDelta != nil {
					onDelta(c.Delta.Content)
				}
			}
			for _, tc := range c.Delta.ToolCalls {
				i, ok := toolCallIdx[tc.Index]
				if !ok {
					toolCalls = append(toolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name})
					i = len(toolCalls) - 1
					toolCallIdx[tc.Index] = i
				}
				if tc.Function.Name != "" {
					toolCalls[i].Name = tc.Function.Name
				}
				toolCalls[i].Input = json.RawMessage(string(toolCalls[i].Input) + tc.Function.Arguments)
			}
			if c.FinishReason != nil {
				finishReason = *c.FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wikierrors.New(wikierrors.KindExternalTransient, "NETWORK", "openai stream read failed", "", err)
	}

	return &ChatResponse{
		Message: Message{
			Role:      "assistant",
			Content:   content.String(),
			ToolCalls: toolCalls,
		},
		StopReason: finishReason,
	}, nil
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package llmgateway provides the single chat() entry point over
// OpenAI-compatible, Azure, and Anthropic providers (§4.5), with retry,
// token-budget enforcement, and a tool-calling loop.
//
// Grounded on pkg/llm/provider.go (the Provider
// interface/factory shape, generalized from ollama/openai/anthropic/mock
// to this package's openai/azure/anthropic set) and
// theRebelliousNerd-codenerd/internal/perception/client_anthropic.go for
// the Anthropic request/response shape, the exponential-backoff retry
// loop, and the streaming delta protocol.
package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kraklabs/docwiki/internal/config"
	"github.com/kraklabs/docwiki/internal/observability"
	"github.com/kraklabs/docwiki/internal/ratelimit"
	"github.com/kraklabs/docwiki/internal/wikierrors"
)

// Message is one turn in a chat transcript. ToolCalls is populated on an
// assistant message that invoked tools; ToolCallID identifies which call a
// role="tool" message answers.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolDefinition describes one callable tool in provider-neutral form.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolCall is a single invocation the model requested.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ChatRequest is a single §4.5 chat() call.
type ChatRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	Tools       []ToolDefinition
}

// ChatResponse is the normalized reply: stop reason, usage, and either
// text content or tool calls to dispatch.
type ChatResponse struct {
	Message      Message
	StopReason   string
	PromptTokens int
	OutputTokens int
	TotalTokens  int
}

// ToolDispatcher executes a tool call and reports its JSON-encodable
// result. Fatal errors abort the tool loop immediately (§4.5).
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call ToolCall) (result string, fatal bool, err error)
}

// DefaultHopCap bounds the tool-calling loop (§4.5).
const DefaultHopCap = 10

// provider is the per-backend transport. Implementations live in
// provider_openai.go, provider_azure.go, provider_anthropic.go.
type provider interface {
	name() string
	send(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	stream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error)
}

// Gateway is the process-wide LLM Gateway substrate used by C7-C10.
type Gateway struct {
	p       provider
	limiter *ratelimit.Bucket
	metrics *observability.Metrics
	logger  *slog.Logger
	hopCap  int
}

// New builds a Gateway from process configuration, selecting the
// configured provider (openai|azure|anthropic).
func New(cfg config.ProviderConfig, limiter *ratelimit.Bucket, metrics *observability.Metrics, logger *slog.Logger) (*Gateway, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return newGatewayWithProvider(p, limiter, metrics, logger, DefaultHopCap), nil
}

func newGatewayWithProvider(p provider, limiter *ratelimit.Bucket, metrics *observability.Metrics, logger *slog.Logger, hopCap int) *Gateway {
	if hopCap <= 0 {
		hopCap = DefaultHopCap
	}
	if metrics == nil {
		metrics = observability.Default()
	}
	return &Gateway{
		p:       p,
		limiter: limiter,
		metrics: metrics,
		logger:  observability.OrDefault(logger),
		hopCap:  hopCap,
	}
}

func newProvider(cfg config.ProviderConfig) (provider, error) {
	switch cfg.Type {
	case "openai":
		return newOpenAIProvider(cfg), nil
	case "azure":
		return newAzureProvider(cfg), nil
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("llmgateway: unknown provider type %q", cfg.Type)
	}
}

func retryableError(err error) bool {
	if werr, ok := wikierrors.As(err); ok {
		return werr.Retryable
	}
	return false
}

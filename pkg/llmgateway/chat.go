// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package llmgateway

import (
	"context"
	"time"

	"github.com/kraklabs/docwiki/internal/ratelimit"
	"github.com/kraklabs/docwiki/internal/wikierrors"
)

const maxSendAttempts = 3

// Chat runs the §4.5 chat() entry point: budget check, rate-limited send
// with retry-with-backoff, and — when dispatcher is non-nil and the model
// requests tools — the tool-calling loop. Pass a nil dispatcher for a
// single-shot call (classifier, outline planner, overview).
func (g *Gateway) Chat(ctx context.Context, req ChatRequest, dispatcher ToolDispatcher) (*ChatResponse, error) {
	return g.run(ctx, req, dispatcher, func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return g.sendWithRetry(ctx, req)
	})
}

// StreamChat is Chat with streaming text deltas: each hop streams its
// assistant turn through onDelta as it arrives, then, if that turn
// requested tools, dispatches them and re-invokes the provider exactly
// like Chat's tool loop (§4.9: "invokes the LLM Gateway with the full Tool
// Surface and a streaming flag... tool calls execute as they arrive").
func (g *Gateway) StreamChat(ctx context.Context, req ChatRequest, dispatcher ToolDispatcher, onDelta func(string)) (*ChatResponse, error) {
	return g.run(ctx, req, dispatcher, func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		return g.streamWithRetry(ctx, req, onDelta)
	})
}

func (g *Gateway) run(ctx context.Context, req ChatRequest, dispatcher ToolDispatcher,
	invoke func(context.Context, ChatRequest) (*ChatResponse, error)) (*ChatResponse, error) {

	if err := checkBudget(req.Model, estimateRequestTokens(req)); err != nil {
		return nil, err
	}

	messages := append([]Message(nil), req.Messages...)
	for hop := 0; ; hop++ {
		if hop >= g.hopCap {
			return nil, wikierrors.New(wikierrors.KindInternal, "TOOL_HOP_CAP_EXCEEDED",
				"tool-calling loop exceeded hop cap", "", nil)
		}

		hopReq := req
		hopReq.Messages = messages

		resp, err := invoke(ctx, hopReq)
		if err != nil {
			return nil, err
		}
		if len(resp.Message.ToolCalls) == 0 {
			return resp, nil
		}
		if dispatcher == nil {
			return nil, wikierrors.New(wikierrors.KindInternal, "", "provider requested tools but no dispatcher was configured", "", nil)
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			result, fatal, dispatchErr := dispatcher.Dispatch(ctx, call)
			if fatal {
				if dispatchErr == nil {
					dispatchErr = wikierrors.New(wikierrors.KindExternalFatal, "", "tool call failed fatally: "+call.Name, result, nil)
				}
				return nil, dispatchErr
			}
			if dispatchErr != nil {
				result = dispatchErr.Error()
			}
			messages = append(messages, Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

func (g *Gateway) sendWithRetry(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return g.withRetry(ctx, func(ctx context.Context) (*ChatResponse, error) {
		return g.p.send(ctx, req)
	})
}

func (g *Gateway) streamWithRetry(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	firstToken := false
	wrappedDelta := func(s string) {
		firstToken = true
		if onDelta != nil {
			onDelta(s)
		}
	}
	return g.withRetry(ctx, func(ctx context.Context) (*ChatResponse, error) {
		// Streaming responses are retried only before the first token
		// (§4.5); once content has flowed, a transport error surfaces as-is.
		resp, err := g.p.stream(ctx, req, wrappedDelta)
		if err != nil && firstToken {
			return nil, withNotRetryable(err)
		}
		return resp, err
	})
}

// withNotRetryable strips the Retryable flag so withRetry's loop stops
// immediately instead of re-sending a partially-streamed request.
func withNotRetryable(err error) error {
	werr, ok := wikierrors.As(err)
	if !ok {
		return err
	}
	clone := *werr
	clone.Retryable = false
	return &clone
}

func (g *Gateway) withRetry(ctx context.Context, call func(context.Context) (*ChatResponse, error)) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if attempt > 0 {
			g.metrics.GatewayRetries.WithLabelValues(g.p.name()).Inc()
			g.logger.Warn("llmgateway: retrying after transient error",
				"provider", g.p.name(), "attempt", attempt, "error", lastErr)
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := call(ctx)
		if err == nil {
			g.metrics.GatewayRequests.WithLabelValues(g.p.name(), "success").Inc()
			g.metrics.GatewayTokens.WithLabelValues(g.p.name(), "prompt").Add(float64(resp.PromptTokens))
			g.metrics.GatewayTokens.WithLabelValues(g.p.name(), "output").Add(float64(resp.OutputTokens))
			return resp, nil
		}
		lastErr = err
		if !retryableError(err) {
			g.metrics.GatewayRequests.WithLabelValues(g.p.name(), "error").Inc()
			return nil, err
		}
	}
	g.metrics.GatewayRequests.WithLabelValues(g.p.name(), "error").Inc()
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, attempt int) error {
	d := ratelimit.Backoff(attempt)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

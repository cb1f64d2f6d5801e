// Package llm implements the resilient completion client: one request in,
// one validated response or one typed error out, with transport and HTTP
// failures retried under a bounded backoff schedule and every successful
// exchange accounted exactly once in the shared ledger.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agentlab/agentlab/internal/backoff"
	"github.com/agentlab/agentlab/internal/cache"
	"github.com/agentlab/agentlab/internal/domain"
	"github.com/agentlab/agentlab/internal/ledger"
	"github.com/agentlab/agentlab/internal/metrics"
	"github.com/agentlab/agentlab/internal/tokenizer"
)

// Provider is the single capability the client needs from a backend:
// shape the request, issue it, and map the response to a ProviderResult
// or a typed failure (transient vs structural). Adding a provider must
// not touch the retry or ledger logic here.
type Provider interface {
	ID() string
	ModelName() string
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.ProviderResult, error)
}

// Recorder archives finished exchanges. Archiving is best-effort; a
// recorder failure never fails a completion.
type Recorder interface {
	Record(ctx context.Context, rec domain.ExchangeRecord) error
}

// Client executes completions against one provider. Safe for concurrent
// use; the ledger is the only shared mutable state and it synchronizes
// itself.
type Client struct {
	provider    Provider
	policy      backoff.Policy
	ledger      *ledger.Ledger
	cache       cache.Cache
	cacheTTL    time.Duration
	archive     Recorder
	temperature float64
	maxTokens   int

	// sleep is replaced in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Complete sends system+prompt to the provider and returns the validated
// response. Transport and HTTP-status failures are retried up to the
// policy's budget; parse failures and cancellation surface immediately.
// The ledger is updated exactly once, after a fully parsed success.
func (c *Client) Complete(ctx context.Context, system, prompt string) (*domain.CompletionResponse, error) {
	req := domain.CompletionRequest{
		Model:       c.provider.ModelName(),
		System:      system,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	requestID := uuid.NewString()
	start := time.Now()

	var cacheKey string
	if c.cache != nil {
		cacheKey = cache.Key(c.provider.ID(), req)
		if resp, ok := c.cache.Get(ctx, cacheKey); ok {
			metrics.RecordCacheHit(c.provider.ID())
			c.record(ctx, requestID, 0, 0, true, start)
			return resp, nil
		}
		metrics.RecordCacheMiss(c.provider.ID())
	}

	// Estimated locally so accounting is uniform across providers. Used
	// for cost only, never for request validation.
	inputTokens := tokenizer.Count(system + prompt)

	var lastErr error
	for attempt := 1; ; attempt++ {
		metrics.RecordAttempt(c.provider.ID(), req.Model)

		result, err := c.provider.Complete(ctx, req)
		if err == nil {
			resp := c.settle(ctx, req.Model, requestID, inputTokens, result, cacheKey, start)
			return resp, nil
		}

		if ctx.Err() != nil {
			metrics.RecordCompletion(c.provider.ID(), req.Model, "cancelled", time.Since(start).Seconds())
			return nil, fmt.Errorf("completion cancelled: %w", ctx.Err())
		}

		if domain.IsStructural(err) || !domain.IsTransient(err) {
			// A malformed 2xx body will not improve on a second attempt.
			metrics.RecordCompletion(c.provider.ID(), req.Model, "parse_error", time.Since(start).Seconds())
			return nil, err
		}

		lastErr = err
		delay, ok := c.policy.Delay(attempt)
		if !ok {
			metrics.RecordCompletion(c.provider.ID(), req.Model, "exhausted", time.Since(start).Seconds())
			return nil, &domain.RetryExhaustedError{Attempts: attempt, Last: lastErr}
		}

		metrics.RecordRetry(c.provider.ID(), errorType(err))
		slog.Warn("completion attempt failed, backing off",
			"provider", c.provider.ID(),
			"request_id", requestID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if err := c.sleep(ctx, delay); err != nil {
			metrics.RecordCompletion(c.provider.ID(), req.Model, "cancelled", time.Since(start).Seconds())
			return nil, fmt.Errorf("completion cancelled: %w", err)
		}
	}
}

// settle turns a parsed provider result into the caller's response and
// performs the single ledger update for the exchange.
func (c *Client) settle(ctx context.Context, model, requestID string, inputTokens int, result *domain.ProviderResult, cacheKey string, start time.Time) *domain.CompletionResponse {
	outputTokens := result.TotalTokens - inputTokens
	if outputTokens < 0 {
		slog.Warn("provider token total below local estimate, clamping output to zero",
			"provider", c.provider.ID(),
			"model", model,
			"estimated_input", inputTokens,
			"reported_total", result.TotalTokens,
		)
		outputTokens = 0
	}

	c.ledger.Add(model, inputTokens, outputTokens)

	cost := c.ledger.Prices().Cost(model, inputTokens, outputTokens)
	metrics.RecordTokens(c.provider.ID(), model, inputTokens, outputTokens)
	metrics.RecordCost(c.provider.ID(), model, cost)
	metrics.RecordCompletion(c.provider.ID(), model, "success", time.Since(start).Seconds())

	slog.Info("completion succeeded",
		"provider", c.provider.ID(),
		"request_id", requestID,
		"tokens_used", result.TotalTokens,
		"session_cost_usd", c.ledger.Cost(),
	)

	resp := &domain.CompletionResponse{
		Text:       result.Text,
		TokensUsed: result.TotalTokens,
	}

	if c.cache != nil && cacheKey != "" {
		if err := c.cache.Set(ctx, cacheKey, resp, c.cacheTTL); err != nil {
			slog.Warn("failed to cache completion", "error", err)
		}
	}

	c.record(ctx, requestID, inputTokens, outputTokens, false, start)

	return resp
}

func (c *Client) record(ctx context.Context, requestID string, inputTokens, outputTokens int, cached bool, start time.Time) {
	if c.archive == nil {
		return
	}

	model := c.provider.ModelName()
	rec := domain.ExchangeRecord{
		RequestID:    requestID,
		Provider:     c.provider.ID(),
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      c.ledger.Prices().Cost(model, inputTokens, outputTokens),
		Cached:       cached,
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
	if err := c.archive.Record(ctx, rec); err != nil {
		slog.Warn("failed to archive exchange", "request_id", requestID, "error", err)
	}
}

// Ledger exposes the shared ledger for cost reporting.
func (c *Client) Ledger() *ledger.Ledger { return c.ledger }

// ProviderID returns the backing provider's identifier.
func (c *Client) ProviderID() string { return c.provider.ID() }

func errorType(err error) string {
	var se *domain.StatusError
	if errors.As(err, &se) {
		return "status"
	}
	return "transport"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

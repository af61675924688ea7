package tts

import (
	"context"
	"log/slog"
)

// Chain tries providers in order, falling back to the next one when a
// provider fails. Non-retryable API errors (bad request, auth) stop the
// chain early since every provider would reject the same input.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a fallback chain over the given providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    slog.Default().With("component", "tts.chain"),
	}
}

// Synthesize tries each provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var lastErr error

	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if apiErr, ok := err.(*APIError); ok && !apiErr.IsRetryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("provider failed, falling back", "index", i, "error", err)
	}

	if lastErr == nil {
		return nil, ErrAllProvidersFailed
	}
	return nil, lastErr
}

// Health reports healthy if any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var lastErr error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return ErrAllProvidersFailed
	}
	return lastErr
}

// Close closes every provider, returning the first error.
func (c *Chain) Close() error {
	var first error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Provider = (*Chain)(nil)

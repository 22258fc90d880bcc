package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// health tracks one provider's consecutive-failure count for the fallback
// client.
type health struct {
	mu                  sync.Mutex
	consecutiveFailures int
	unhealthyThreshold  int
}

func (h *health) recordSuccess() {
	h.mu.Lock()
	h.consecutiveFailures = 0
	h.mu.Unlock()
}

func (h *health) recordFailure() {
	h.mu.Lock()
	h.consecutiveFailures++
	h.mu.Unlock()
}

func (h *health) isUnhealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures >= h.unhealthyThreshold
}

func (h *health) snapshot() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures
}

// FallbackClient wraps an ordered list of providers, walking past unhealthy
// ones and returning the first success.
type FallbackClient struct {
	providers []Provider
	health    []*health
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// FallbackOption configures a FallbackClient at construction.
type FallbackOption func(*FallbackClient)

// WithRateLimit bounds calls across all providers to r requests/sec with a
// burst of b, using golang.org/x/time/rate so a runaway interview can't
// flood a provider.
func WithRateLimit(r float64, b int) FallbackOption {
	return func(c *FallbackClient) {
		c.limiter = rate.NewLimiter(rate.Limit(r), b)
	}
}

// WithLogger attaches a zerolog.Logger for operator-facing diagnostics.
func WithLogger(logger zerolog.Logger) FallbackOption {
	return func(c *FallbackClient) {
		c.logger = logger
	}
}

// NewFallbackClient builds a fallback chain over providers in order.
// unhealthyThreshold is the N consecutive retryable failures before a
// provider is skipped (default 3 when <= 0).
func NewFallbackClient(providers []Provider, unhealthyThreshold int, opts ...FallbackOption) *FallbackClient {
	if unhealthyThreshold <= 0 {
		unhealthyThreshold = 3
	}
	c := &FallbackClient{
		providers: providers,
		logger:    zerolog.Nop(),
	}
	for range providers {
		c.health = append(c.health, &health{unhealthyThreshold: unhealthyThreshold})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderHealth reports the current consecutive-failure count for the
// provider at index i, for tests and diagnostics.
func (c *FallbackClient) ProviderHealth(i int) int {
	return c.health[i].snapshot()
}

// call walks the provider list, invoking fn on each until one succeeds.
func (c *FallbackClient) call(ctx context.Context, fn func(Provider) (string, error)) (string, error) {
	var lastErr error
	for i, p := range c.providers {
		if c.health[i].isUnhealthy() {
			c.logger.Debug().Str("provider", p.Name()).Msg("skipping unhealthy provider")
			continue
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter wait cancelled: %w", err)
			}
		}

		text, err := fn(p)
		if err == nil {
			c.health[i].recordSuccess()
			return text, nil
		}

		ce, ok := AsCallError(err)
		if !ok {
			ce = classifyProviderErr(p.Name(), err)
		}

		if ce.Kind == ErrRefused {
			// Non-retryable against this provider, but the fallback still
			// tries the next one.
			c.logger.Warn().Str("provider", p.Name()).Msg("provider refused the request, trying next")
			lastErr = ce
			continue
		}

		if ce.Retryable() {
			c.health[i].recordFailure()
			c.logger.Warn().Str("provider", p.Name()).Int("consecutiveFailures", c.health[i].snapshot()).Msg("provider call failed")
			lastErr = ce
			continue
		}

		// Non-retryable, non-refusal errors propagate immediately without
		// marking health or trying the next provider.
		return "", ce
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no healthy providers available")
	}
	return "", lastErr
}

func (c *FallbackClient) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	return c.call(ctx, func(p Provider) (string, error) {
		return p.Chat(ctx, messages, opts)
	})
}

func (c *FallbackClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return c.call(ctx, func(p Provider) (string, error) {
		return p.Complete(ctx, prompt, opts)
	})
}

func (c *FallbackClient) Stream(ctx context.Context, prompt string, opts CompletionOptions, cb StreamCallback) (string, error) {
	return c.call(ctx, func(p Provider) (string, error) {
		return p.Stream(ctx, prompt, opts, cb)
	})
}

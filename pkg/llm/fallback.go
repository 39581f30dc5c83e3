package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/legal-analyzer/internal/resilience"
)

// Fallback tries providers in order until one succeeds. Each provider call
// is rate-limited, retried on transient errors, and guarded by a per-provider
// circuit breaker so a failing provider is skipped quickly.
type Fallback struct {
	providers []Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	breakers  *resilience.ServiceBreakers
	logger    *zap.Logger
}

// Option configures a Fallback.
type Option func(*Fallback)

// WithBreakerConfig overrides the default per-provider circuit breaker
// settings.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(f *Fallback) {
		f.breakers = resilience.NewServiceBreakers(cfg)
	}
}

// NewFallback builds a fallback chain over providers. rps caps requests per
// second across the whole chain; rps <= 0 disables the limiter.
func NewFallback(providers []Client, rps float64, retry resilience.RetryConfig, opts ...Option) *Fallback {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	f := &Fallback{
		providers: providers,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     retry,
		breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		logger:    zap.L().With(zap.String("component", "llm")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if len(f.providers) == 0 {
		return "", eris.New("llm: no providers configured")
	}

	var lastErr error
	for _, p := range f.providers {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "llm: rate limiter wait")
		}

		breaker := f.breakers.Get(p.Name())
		retry := f.retry
		if retry.OnRetry == nil {
			retry.OnRetry = resilience.RetryLogger(p.Name(), "generate_text")
		}
		out, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (string, error) {
				return p.GenerateText(ctx, req)
			})
		})
		if err == nil {
			return out, nil
		}

		lastErr = err
		f.logger.Warn("provider failed, falling back",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return "", eris.Wrap(lastErr, "llm: all providers failed")
}

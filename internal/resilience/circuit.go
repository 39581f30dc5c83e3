// Package resilience guards model provider calls. Transient failures are
// retried with backoff, and a per-provider circuit breaker cuts off a
// provider that keeps failing so the fallback chain moves on quickly.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen rejects calls to a provider whose breaker is open.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// CircuitBreakerConfig sizes a provider circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold int

	// ResetTimeout is how long an open breaker rejects calls before letting
	// a probe call through.
	ResetTimeout time.Duration
}

// DefaultCircuitBreakerConfig mirrors the shipped llm.circuit_* defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// CircuitBreaker tracks consecutive failures for a single provider. While
// closed, calls flow through; once FailureThreshold consecutive failures
// accumulate it opens and rejects calls until ResetTimeout elapses, after
// which one probe call decides whether it closes again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *zap.Logger

	mu       sync.Mutex
	open     bool
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker for the named provider.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name: name,
		cfg:  cfg,
		logger: zap.L().With(
			zap.String("component", "resilience"),
			zap.String("provider", name),
		),
		now: time.Now,
	}
}

// ExecuteVal runs fn through the breaker, rejecting the call with
// ErrCircuitOpen while the breaker is open.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.allow(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	cb.observe(err)
	return val, err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return nil
	}
	if cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.logger.Info("probing provider after reset timeout")
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.open {
			cb.open = false
			cb.logger.Info("provider circuit closed")
		}
		cb.failures = 0
		return
	}

	cb.failures++
	switch {
	case cb.open:
		// Failed probe, stay open for another reset window.
		cb.openedAt = cb.now()
	case cb.failures >= cb.cfg.FailureThreshold:
		cb.open = true
		cb.openedAt = cb.now()
		cb.logger.Warn("provider circuit opened", zap.Int("failures", cb.failures))
	}
}

// ServiceBreakers holds one breaker per provider in the fallback chain.
type ServiceBreakers struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewServiceBreakers creates an empty per-provider breaker registry.
func NewServiceBreakers(cfg CircuitBreakerConfig) *ServiceBreakers {
	return &ServiceBreakers{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the named provider's breaker, creating it on first use.
func (sb *ServiceBreakers) Get(provider string) *CircuitBreaker {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	cb, ok := sb.breakers[provider]
	if !ok {
		cb = NewCircuitBreaker(provider, sb.cfg)
		sb.breakers[provider] = cb
	}
	return cb
}

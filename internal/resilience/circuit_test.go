package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failProvider(t *testing.T, cb *CircuitBreaker) error {
	t.Helper()
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "", eris.New("model overloaded")
	})
	return err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("anthropic", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		require.Error(t, failProvider(t, cb))
	}

	calls := 0
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		calls++
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open breaker must reject without calling the provider")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("anthropic", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	require.Error(t, failProvider(t, cb))
	require.Error(t, failProvider(t, cb))

	out, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	// Two more failures don't reach the threshold again.
	require.Error(t, failProvider(t, cb))
	require.Error(t, failProvider(t, cb))

	_, err = ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "still closed", nil
	})
	assert.NoError(t, err)
}

func TestBreakerClosesAfterSuccessfulProbe(t *testing.T) {
	cb := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Minute})
	current := time.Now()
	cb.now = func() time.Time { return current }

	require.Error(t, failProvider(t, cb))
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "", nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)

	current = current.Add(11 * time.Minute)

	out, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	// Closed again: the next call flows even without advancing the clock.
	_, err = ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
}

func TestBreakerStaysOpenAfterFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Minute})
	current := time.Now()
	cb.now = func() time.Time { return current }

	require.Error(t, failProvider(t, cb))
	current = current.Add(11 * time.Minute)
	require.Error(t, failProvider(t, cb))

	// The failed probe started a fresh reset window.
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestServiceBreakersIsolateProviders(t *testing.T) {
	sb := NewServiceBreakers(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	require.Error(t, failProvider(t, sb.Get("anthropic")))
	_, err := ExecuteVal(context.Background(), sb.Get("anthropic"), func(context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)

	out, err := ExecuteVal(context.Background(), sb.Get("openai"), func(context.Context) (string, error) {
		return "healthy", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "healthy", out)

	assert.Same(t, sb.Get("anthropic"), sb.Get("anthropic"))
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(2, 60)
	assert.Equal(t, 2, cfg.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.ResetTimeout)

	cfg = FromCircuitConfig(0, 0)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.ResetTimeout)
}

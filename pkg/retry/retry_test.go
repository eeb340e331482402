package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error after exhaustion", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(2), func() error {
			calls++
			return errors.New("still broken")
		})
		require.Error(t, err)
		assert.Equal(t, "still broken", err.Error())
		assert.Equal(t, 3, calls) // initial attempt + 2 retries
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := &Config{MaxRetries: 5, InitialDelay: time.Minute, MaxDelay: time.Minute, Multiplier: 2}
		err := Do(ctx, cfg, func() error {
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, calls)
}

type declaredError struct {
	retryable bool
}

func (e *declaredError) Error() string     { return "declared" }
func (e *declaredError) IsRetryable() bool { return e.retryable }

func TestDoIfRetryable(t *testing.T) {
	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			return errors.New("invalid api key")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			if calls < 2 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("honors declared retryability over patterns", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			return &declaredError{retryable: false}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("provider config retries exactly once", func(t *testing.T) {
		cfg := ProviderConfig()
		cfg.InitialDelay = time.Millisecond
		calls := 0
		err := DoIfRetryable(context.Background(), cfg, func() error {
			calls++
			return errors.New("503 service unavailable")
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", errors.New("i/o timeout"), true},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("HTTP 503 from upstream"), true},
		{"auth failure", errors.New("invalid api key"), false},
		{"declared retryable", &declaredError{retryable: true}, true},
		{"declared permanent", &declaredError{retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond, Multiplier: 2}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 350 * time.Millisecond},
		{10, 350 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	transient := errors.New("connection reset")

	tests := []struct {
		name         string
		failures     int
		err          error
		wantAttempts int
		wantErr      error
	}{
		{"first try", 0, nil, 1, nil},
		{"recovers on third", 2, transient, 3, nil},
		{"exhausted", 5, transient, 3, transient},
		{"vanished not retried", 5, ErrUnitVanished, 1, ErrUnitVanished},
		{"permanent not retried", 5, Permanent(transient), 1, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			attempts, err := fastRetry().Do(context.Background(), func(ctx context.Context, attempt int) error {
				calls++
				assert.Equal(t, calls, attempt)
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantAttempts, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, IsPermanent(err), "permanent wrapper should be stripped")
			}
		})
	}
}

func TestRetryPolicy_DoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, Multiplier: 2}

	attempts, err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		cancel()
		return errors.New("boom")
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(config.RetryConfig{MaxAttempts: 5, InitialBackoff: 10 * time.Millisecond})
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, DefaultRetryPolicy().MaxBackoff, p.MaxBackoff)
	assert.Equal(t, 2.0, p.Multiplier)

	require.Nil(t, Permanent(nil))
}

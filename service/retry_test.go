package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/herald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fastRetry = RetryPolicy{InitialInterval: time.Millisecond, MaxElapsedTime: time.Second}

func TestRetry_RetriesNetworkFailures(t *testing.T) {
	attempts := 0
	got, err := Retry(context.Background(), fastRetry, zaptest.NewLogger(t), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", core.NewError(core.StageRequest, core.ErrNetworkUnavailable, "", errors.New("connection reset"))
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnTerminalErrors(t *testing.T) {
	for _, kind := range []error{core.ErrUserRejected, core.ErrContractRejected, core.ErrUnauthorized, core.ErrAuthRejected} {
		attempts := 0
		_, err := Retry(context.Background(), fastRetry, zaptest.NewLogger(t), func(ctx context.Context) (int, error) {
			attempts++
			return 0, core.NewError(core.StageSubmit, kind, "", nil)
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, kind))
		assert.Equal(t, 1, attempts, kind.Error())
	}
}

func TestRetry_GivesUp(t *testing.T) {
	policy := RetryPolicy{InitialInterval: time.Millisecond, MaxElapsedTime: 20 * time.Millisecond}
	_, err := Retry(context.Background(), policy, zaptest.NewLogger(t), func(ctx context.Context) (int, error) {
		return 0, core.NewError(core.StageAuth, core.ErrNetworkUnavailable, "", nil)
	})
	assert.True(t, errors.Is(err, core.ErrNetworkUnavailable))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Retry(ctx, fastRetry, zaptest.NewLogger(t), func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, core.NewError(core.StageAuth, core.ErrNetworkUnavailable, "", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

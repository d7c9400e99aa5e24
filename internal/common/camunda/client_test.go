package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"dispatch-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := executeWithRetry(context.Background(), fastRetry(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 2 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "complete job")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("NOT_FOUND: job 42 not found")
	}, "complete job")

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeExternalService, stdErr.Code)
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("context deadline exceeded")
	}, "complete job")

	assert.Equal(t, 3, calls)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
	assert.Contains(t, stdErr.Details, "after 2 attempts")
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	_, err := executeWithRetry(ctx, slow, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("connection reset by peer")
	}, "complete job")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "gateway restarting"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow broker"), true},
		{"grpc not found", status.Error(codes.NotFound, "job timed out"), false},
		{"grpc not found mentioning timeout", status.Error(codes.NotFound, "timeout elapsed"), false},
		{"plain connection reset", stderrors.New("read: connection reset by peer"), true},
		{"plain permanent", stderrors.New("invalid variables"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

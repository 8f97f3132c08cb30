package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"reset by peer", errors.New("read: connection reset by peer"), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
		{"other", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	r := &PostgresRepository{}
	calls := 0
	permanent := errors.New("syntax error")

	err := r.withRetry(context.Background(), func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	r := &PostgresRepository{retryDelays: []time.Duration{0, 0}}
	calls := 0

	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterLastDelay(t *testing.T) {
	r := &PostgresRepository{retryDelays: []time.Duration{0}}
	calls := 0

	err := r.withRetry(context.Background(), func() error {
		calls++
		return errors.New("write: broken pipe")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_HonoursContext(t *testing.T) {
	r := &PostgresRepository{retryDelays: defaultRetryDelays}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := r.withRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("save: %w", storeErr("upsert draft", cause))

	assert.True(t, IsStoreError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save: upsert draft: boom", err.Error())
	assert.False(t, IsStoreError(ErrOfferNotFound))
}

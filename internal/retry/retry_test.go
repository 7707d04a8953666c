package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvc/confclient/internal/protocol"
)

func TestDoRetriesTransientFailures(t *testing.T) {
	attempts := 0
	v, err := Do(context.Background(), zerolog.Nop(), "op", func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, attempts)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), zerolog.Nop(), "op", func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
}

func TestDoNeverRetriesTerminalErrors(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), zerolog.Nop(), "op", func(context.Context) (int, error) {
		attempts++
		return 0, protocol.ErrInvalidToken
	})
	assert.ErrorIs(t, err, protocol.ErrInvalidToken)
	assert.Equal(t, 1, attempts)

	attempts = 0
	_, err = Do(context.Background(), zerolog.Nop(), "op", func(context.Context) (int, error) {
		attempts++
		return 0, &protocol.RequiredPinError{GuestPin: true}
	})
	var pin *protocol.RequiredPinError
	assert.ErrorAs(t, err, &pin)
	assert.Equal(t, 1, attempts)
}

func TestDoPropagatesCancellationImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Do(ctx, zerolog.Nop(), "op", func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoVoid(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), zerolog.Nop(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

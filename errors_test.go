package reckon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("Kinds match their sentinel only", func(t *testing.T) {
		err := stateError(map[string]any{"version": "1.0.0"}, "version %s is claimed", "1.0.0")
		require.ErrorIs(t, err, ErrState)
		require.NotErrorIs(t, err, ErrInput)
		require.NotErrorIs(t, err, ErrConfiguration)
		require.Equal(t, "[STATE] version 1.0.0 is claimed", err.Error())
	})

	t.Run("Wrapped errors keep their kind", func(t *testing.T) {
		err := fmt.Errorf("reckoning: %w", inputError(nil, "bad stage"))
		require.ErrorIs(t, err, ErrInput)

		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		require.Equal(t, KindInput, rerr.Kind)
	})

	t.Run("Cause is unwrapped", func(t *testing.T) {
		cause := errors.New("underlying")
		err := &Error{Kind: KindInput, Message: "invalid", Cause: cause}
		require.ErrorIs(t, err, cause)
		require.Equal(t, "[INPUT] invalid: underlying", err.Error())
	})

	t.Run("Context is kept", func(t *testing.T) {
		_, err := ParseVersion("bogus")
		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		require.Equal(t, "bogus", rerr.Context["version"])
	})
}

package actor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureKind(t *testing.T) {
	t.Run("transient kinds", func(t *testing.T) {
		assert.True(t, FailureTimeout.Transient())
		assert.True(t, FailureResourceExhausted.Transient())
		assert.False(t, FailureCrash.Transient())
		assert.False(t, FailureInvariant.Transient())
		assert.False(t, FailureUnknown.Transient())
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "timeout", FailureTimeout.String())
		assert.Equal(t, "resource-exhausted", FailureResourceExhausted.String())
		assert.Equal(t, "crash", FailureCrash.String())
		assert.Equal(t, "invariant", FailureInvariant.String())
		assert.Equal(t, "unknown", FailureUnknown.String())
	})
}

func TestFailure(t *testing.T) {
	t.Run("error message includes the kind", func(t *testing.T) {
		f := NewFailure(FailureTimeout, errors.New("deadline exceeded"))
		assert.Equal(t, "timeout: deadline exceeded", f.Error())
	})

	t.Run("failf formats the message", func(t *testing.T) {
		f := Failf(FailureInvariant, "count is %d", -1)
		assert.Equal(t, "invariant: count is -1", f.Error())
	})

	t.Run("unwraps the cause", func(t *testing.T) {
		cause := errors.New("deadline exceeded")
		f := NewFailure(FailureTimeout, cause)
		require.ErrorIs(t, f, cause)
	})

	t.Run("nil cause", func(t *testing.T) {
		f := &Failure{Kind: FailureCrash}
		assert.Equal(t, "crash", f.Error())
	})
}

func TestKindOf(t *testing.T) {
	t.Run("direct failure", func(t *testing.T) {
		assert.Equal(t, FailureTimeout, KindOf(NewFailure(FailureTimeout, errors.New("x"))))
	})

	t.Run("wrapped failure", func(t *testing.T) {
		err := fmt.Errorf("processing message: %w", Failf(FailureResourceExhausted, "pool empty"))
		assert.Equal(t, FailureResourceExhausted, KindOf(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, FailureUnknown, KindOf(errors.New("something broke")))
	})
}

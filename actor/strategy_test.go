package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDecider(t *testing.T) {
	assert.Equal(t, DirectiveRestart, DefaultDecider(FailureTimeout))
	assert.Equal(t, DirectiveRestart, DefaultDecider(FailureResourceExhausted))
	assert.Equal(t, DirectiveStop, DefaultDecider(FailureCrash))
	assert.Equal(t, DirectiveStop, DefaultDecider(FailureInvariant))
	assert.Equal(t, DirectiveStop, DefaultDecider(FailureUnknown))
}

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()

	assert.Equal(t, OneForOne, s.Scope)
	assert.Equal(t, 10, s.MaxRestarts)
	assert.Equal(t, 30*time.Second, s.Window)
	assert.NotNil(t, s.Decide)
}

func TestStrategy_DecideFor(t *testing.T) {
	t.Run("uses the configured decider", func(t *testing.T) {
		s := Strategy{
			Decide: func(kind FailureKind) Directive {
				return DirectiveEscalate
			},
		}
		assert.Equal(t, DirectiveEscalate, s.DecideFor(FailureCrash))
	})

	t.Run("falls back to the default decider", func(t *testing.T) {
		s := Strategy{}
		assert.Equal(t, DirectiveRestart, s.DecideFor(FailureTimeout))
		assert.Equal(t, DirectiveStop, s.DecideFor(FailureCrash))
	})
}

func TestDirective_String(t *testing.T) {
	assert.Equal(t, "restart", DirectiveRestart.String())
	assert.Equal(t, "stop", DirectiveStop.String())
	assert.Equal(t, "resume", DirectiveResume.String())
	assert.Equal(t, "escalate", DirectiveEscalate.String())
	assert.Equal(t, "invalid", Directive(99).String())
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "one-for-one", OneForOne.String())
	assert.Equal(t, "all-for-one", AllForOne.String())
}

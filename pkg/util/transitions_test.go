package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/util"
)

func TestStateTransitions(t *testing.T) {
	transitions := util.StateTransitions[string]{
		"active": util.SetOf("paused", "done"),
		"paused": util.SetOf("active"),
		"done":   {},
	}

	assert.True(t, transitions.CanTransition("active", "paused"))
	assert.True(t, transitions.CanTransition("paused", "active"))
	assert.False(t, transitions.CanTransition("done", "active"))
	assert.False(t, transitions.CanTransition("active", "active"))
	assert.False(t, transitions.CanTransition("missing", "active"))
}

func TestStateTransitionsTerminal(t *testing.T) {
	transitions := util.StateTransitions[string]{
		"active": util.SetOf("done"),
		"done":   {},
	}

	assert.False(t, transitions.IsTerminal("active"))
	assert.True(t, transitions.IsTerminal("done"))
	assert.False(t, transitions.IsTerminal("missing"))
}

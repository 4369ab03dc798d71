package events_test

import (
	"testing"

	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
)

func TestRaiseEnqueuesEvent(t *testing.T) {
	ag := &timebox.Aggregator[int]{}

	err := events.Raise(
		ag, api.EventTypeInstanceStarted,
		api.InstanceStartedEvent{InstanceID: "i1"},
	)
	assert.NoError(t, err)
	assert.Len(t, ag.Enqueued(), 1)
}

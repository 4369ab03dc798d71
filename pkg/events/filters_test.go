package events_test

import (
	"testing"

	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
)

func TestFilterEvents(t *testing.T) {
	filter := events.FilterEvents(
		timebox.EventType(api.EventTypeInstanceStarted),
		timebox.EventType(api.EventTypeInstanceCompleted),
	)

	assert.True(t, filter(&timebox.Event{
		Type: timebox.EventType(api.EventTypeInstanceStarted),
	}))
	assert.False(t, filter(&timebox.Event{
		Type: timebox.EventType(api.EventTypeInstancePaused),
	}))
}

func TestFilterInstance(t *testing.T) {
	filter := events.FilterInstance("i1")

	assert.True(t, filter(&timebox.Event{
		AggregateID: events.InstanceKey(api.InstanceID("i1")),
	}))
	assert.False(t, filter(&timebox.Event{
		AggregateID: events.InstanceKey(api.InstanceID("i2")),
	}))
	assert.False(t, filter(&timebox.Event{
		AggregateID: events.RegistryKey,
	}))
}

func TestFilterAggregate(t *testing.T) {
	filter := events.FilterAggregate(
		timebox.NewAggregateID(events.InstancePrefix),
	)

	assert.True(t, filter(&timebox.Event{
		AggregateID: events.InstanceKey(api.InstanceID("i1")),
	}))
	assert.False(t, filter(&timebox.Event{
		AggregateID: events.RegistryKey,
	}))
}

func TestAndOrFilters(t *testing.T) {
	isInstance := events.EventFilter(events.IsInstanceEvent)
	isStarted := events.FilterEvents(
		timebox.EventType(api.EventTypeInstanceStarted),
	)

	both := events.AndFilters(isInstance, isStarted)
	either := events.OrFilters(isInstance, isStarted)

	started := &timebox.Event{
		AggregateID: events.InstanceKey(api.InstanceID("i1")),
		Type:        timebox.EventType(api.EventTypeInstanceStarted),
	}
	registryStarted := &timebox.Event{
		AggregateID: events.RegistryKey,
		Type:        timebox.EventType(api.EventTypeInstanceStarted),
	}

	assert.True(t, both(started))
	assert.False(t, both(registryStarted))
	assert.True(t, either(registryStarted))
	assert.False(t, either(&timebox.Event{
		AggregateID: events.RegistryKey,
		Type:        timebox.EventType(api.EventTypeInstancePaused),
	}))
}

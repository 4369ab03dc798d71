// Package wait provides event-stream assertions for engine tests. A Wait
// consumes hub events until the expected pattern is observed or a timeout
// expires
package wait

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
	"github.com/docketry/docket/pkg/util"
)

type (
	Wait struct {
		t        *testing.T
		consumer *timebox.Consumer
		timeout  time.Duration
	}

	Predicate[T any] func(T) bool

	EventFilter Predicate[*timebox.Event]

	instanceEvent struct {
		InstanceID api.InstanceID `json:"instance_id"`
	}

	reminderEvent struct {
		InstanceID api.InstanceID    `json:"instance_id"`
		ItemID     api.ItemID        `json:"item_id"`
		Label      api.ReminderLabel `json:"label"`
	}
)

const DefaultTimeout = time.Second * 5

var registryFilter = EventFilter(func(ev *timebox.Event) bool {
	return events.IsRegistryEvent(ev)
})

func On(t *testing.T, consumer *timebox.Consumer) *Wait {
	return &Wait{
		t:        t,
		consumer: consumer,
		timeout:  DefaultTimeout,
	}
}

func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for matching events from the consumer
func (w *Wait) ForEvents(count int, filter EventFilter) {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	for seen := 0; seen < count; {
		select {
		case ev, ok := <-w.consumer.Receive():
			if !ok {
				w.t.Fatalf(
					"event consumer closed before receiving %d events", count,
				)
			}
			if !filter(ev) {
				continue
			}
			seen++
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for %d events", count)
		}
	}
}

// ForEvent waits for a single matching event
func (w *Wait) ForEvent(filter EventFilter) {
	w.ForEvents(1, filter)
}

// And composes event filters and returns true when all match
func And(filters ...EventFilter) EventFilter {
	return func(ev *timebox.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// Type creates a filter for a single event type
func Type(eventType api.EventType) EventFilter {
	return Types(eventType)
}

// Types creates a filter for the given event types
func Types(eventTypes ...api.EventType) EventFilter {
	if len(eventTypes) == 0 {
		return func(*timebox.Event) bool { return false }
	}
	lookup := make(util.Set[timebox.EventType], len(eventTypes))
	for _, et := range eventTypes {
		lookup.Add(timebox.EventType(et))
	}
	return func(ev *timebox.Event) bool {
		return lookup.Contains(ev.Type)
	}
}

// RegistryEvent matches registry aggregate events for the given types
func RegistryEvent(eventTypes ...api.EventType) EventFilter {
	return And(registryFilter, Types(eventTypes...))
}

// InstanceStarted matches instance started events for the provided IDs
func InstanceStarted(ids ...api.InstanceID) EventFilter {
	return And(Type(api.EventTypeInstanceStarted), InstanceIDs(ids...))
}

// InstanceActivated matches registry activation events for the provided IDs
func InstanceActivated(ids ...api.InstanceID) EventFilter {
	return And(
		registryFilter,
		Type(api.EventTypeInstanceActivated),
		Unmarshal(func(data api.InstanceActivatedEvent) bool {
			for _, id := range ids {
				if data.Info != nil && data.Info.InstanceID == id {
					return true
				}
			}
			return false
		}),
	)
}

// InstanceDeactivated matches registry deactivation events for the IDs
func InstanceDeactivated(ids ...api.InstanceID) EventFilter {
	return And(
		registryFilter,
		Type(api.EventTypeInstanceDeactivated),
		InstanceIDs(ids...),
	)
}

// InstanceTerminal matches completed, cancelled, or failed events for the
// provided instance IDs
func InstanceTerminal(ids ...api.InstanceID) EventFilter {
	return And(
		Types(
			api.EventTypeInstanceCompleted,
			api.EventTypeInstanceCancelled,
			api.EventTypeInstanceFailed,
		),
		InstanceIDs(ids...),
	)
}

// InstanceCompleted matches instance completed events for the provided IDs
func InstanceCompleted(ids ...api.InstanceID) EventFilter {
	return And(Type(api.EventTypeInstanceCompleted), InstanceIDs(ids...))
}

// StageTransitioned matches stage transition events for the provided IDs
func StageTransitioned(ids ...api.InstanceID) EventFilter {
	return And(Type(api.EventTypeStageTransitioned), InstanceIDs(ids...))
}

// ReminderFired matches reminder fired events for an item and label
func ReminderFired(
	id api.InstanceID, itemID api.ItemID, label api.ReminderLabel,
) EventFilter {
	return And(
		Type(api.EventTypeReminderFired),
		Unmarshal(func(data reminderEvent) bool {
			return data.InstanceID == id &&
				data.ItemID == itemID &&
				data.Label == label
		}),
	)
}

// ActivityRecorded matches activity outcome events for an instance and
// activity name
func ActivityRecorded(id api.InstanceID, name string) EventFilter {
	return And(
		Type(api.EventTypeActivityRecorded),
		Unmarshal(func(data api.ActivityRecordedEvent) bool {
			return data.InstanceID == id && data.Activity == name
		}),
	)
}

// InstanceID matches events for the provided instance ID
func InstanceID(id api.InstanceID) EventFilter {
	return InstanceIDs(id)
}

// InstanceIDs matches events for the provided instance IDs
func InstanceIDs(ids ...api.InstanceID) EventFilter {
	expected := make(util.Set[api.InstanceID], len(ids))
	for _, id := range ids {
		expected.Add(id)
	}
	return Unmarshal(func(data instanceEvent) bool {
		if expected.Contains(data.InstanceID) {
			expected.Remove(data.InstanceID)
			return true
		}
		return false
	})
}

// Unmarshal creates a filter that unmarshals event data and applies pred
func Unmarshal[T any](pred Predicate[T]) EventFilter {
	return func(ev *timebox.Event) bool {
		var data T
		if json.Unmarshal(ev.Data, &data) != nil {
			return false
		}
		return pred(data)
	}
}

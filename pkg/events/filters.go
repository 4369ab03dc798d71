package events

import "github.com/kode4food/timebox"

// EventFilter reports whether an event matches a subscription
type EventFilter func(*timebox.Event) bool

// FilterEvents matches events of any of the provided types
func FilterEvents(eventTypes ...timebox.EventType) EventFilter {
	lookup := map[timebox.EventType]bool{}
	for _, et := range eventTypes {
		lookup[et] = true
	}
	return func(ev *timebox.Event) bool {
		return lookup[ev.Type]
	}
}

// FilterInstance matches events belonging to a single instance stream
func FilterInstance(instanceID timebox.ID) EventFilter {
	return func(ev *timebox.Event) bool {
		if !IsInstanceEvent(ev) {
			return false
		}
		return ev.AggregateID[1] == instanceID
	}
}

// FilterAggregate matches events whose aggregate ID starts with the prefix
func FilterAggregate(prefix timebox.AggregateID) EventFilter {
	return func(ev *timebox.Event) bool {
		if len(ev.AggregateID) < len(prefix) {
			return false
		}
		for i, p := range prefix {
			if ev.AggregateID[i] != p {
				return false
			}
		}
		return true
	}
}

// AndFilters matches events accepted by every filter
func AndFilters(filters ...EventFilter) EventFilter {
	return func(ev *timebox.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// OrFilters matches events accepted by any filter
func OrFilters(filters ...EventFilter) EventFilter {
	return func(ev *timebox.Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}

package events

import "github.com/kode4food/walkthrough/pkg/api"

// Filter selects the events a subscriber receives
type Filter func(*api.Event) bool

// All accepts every event
func All(*api.Event) bool {
	return true
}

// FilterTypes accepts events of the given types
func FilterTypes(types ...api.EventType) Filter {
	lookup := map[api.EventType]bool{}
	for _, et := range types {
		lookup[et] = true
	}
	return func(ev *api.Event) bool {
		return ev != nil && lookup[ev.Type]
	}
}

// FilterSession accepts events raised for a single session
func FilterSession(id api.SessionID) Filter {
	return func(ev *api.Event) bool {
		return ev != nil && ev.SessionID == id
	}
}

// AndFilters accepts events that every filter accepts
func AndFilters(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// OrFilters accepts events that any filter accepts
func OrFilters(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}

package wait

import (
	"testing"
	"time"

	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	Wait struct {
		t       *testing.T
		sub     *events.Subscription
		timeout time.Duration
	}

	Predicate[T any] func(T) bool
)

const DefaultTimeout = time.Second * 5

func On(t *testing.T, sub *events.Subscription) *Wait {
	return &Wait{
		t:       t,
		sub:     sub,
		timeout: DefaultTimeout,
	}
}

func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for matching events from the subscription and returns
// them in the order they arrived
func (w *Wait) ForEvents(count int, filter events.Filter) []api.Event {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	res := make([]api.Event, 0, count)
	for len(res) < count {
		select {
		case ev, ok := <-w.sub.Receive():
			if !ok {
				w.t.Fatalf(
					"subscription closed before receiving %d events", count,
				)
			}
			if !filter(&ev) {
				continue
			}
			res = append(res, ev)
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for %d events", count)
		}
	}
	return res
}

// ForEvent waits for a single matching event
func (w *Wait) ForEvent(filter events.Filter) api.Event {
	w.t.Helper()
	return w.ForEvents(1, filter)[0]
}

// StepIDs matches events for the provided steps, each one only once
func StepIDs(ids ...api.StepID) events.Filter {
	expected := make(map[api.StepID]bool, len(ids))
	for _, id := range ids {
		expected[id] = true
	}
	return func(ev *api.Event) bool {
		if expected[ev.StepID] {
			delete(expected, ev.StepID)
			return true
		}
		return false
	}
}

// StepRecorded matches step recorded events for the provided steps
func StepRecorded(ids ...api.StepID) events.Filter {
	return events.AndFilters(
		events.FilterTypes(api.EventTypeStepRecorded), StepIDs(ids...),
	)
}

// ResponseReceived matches response events for the provided steps
func ResponseReceived(ids ...api.StepID) events.Filter {
	return events.AndFilters(
		events.FilterTypes(api.EventTypeResponseReceived), StepIDs(ids...),
	)
}

// RunCompleted matches the run completed event of a session
func RunCompleted(id api.SessionID) events.Filter {
	return events.AndFilters(
		events.FilterTypes(api.EventTypeRunCompleted),
		events.FilterSession(id),
	)
}

// Data creates a filter that applies pred to event payloads of type T
func Data[T any](pred Predicate[T]) events.Filter {
	return func(ev *api.Event) bool {
		data, ok := ev.Data.(T)
		if !ok {
			return false
		}
		return pred(data)
	}
}

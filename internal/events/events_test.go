package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/pkg/api"
)

func sessionEvent(id api.SessionID, typ api.EventType) *api.Event {
	ev := api.NewEvent(typ, "Step 1", nil)
	ev.SessionID = id
	return &ev
}

func TestFilterTypes(t *testing.T) {
	filter := events.FilterTypes(
		api.EventTypeContentShown, api.EventTypeStepRecorded,
	)

	assert.True(t, filter(sessionEvent("a", api.EventTypeContentShown)))
	assert.True(t, filter(sessionEvent("a", api.EventTypeStepRecorded)))
	assert.False(t, filter(sessionEvent("a", api.EventTypeEndpointCalled)))
	assert.False(t, filter(nil))
}

func TestFilterSession(t *testing.T) {
	filter := events.FilterSession("session-1")

	assert.True(t, filter(sessionEvent("session-1", api.EventTypeContentShown)))
	assert.False(t, filter(sessionEvent("session-2", api.EventTypeContentShown)))
	assert.False(t, filter(nil))
}

func TestAndFilters(t *testing.T) {
	filter := events.AndFilters(
		events.FilterSession("session-1"),
		events.FilterTypes(api.EventTypeRunCompleted),
	)

	assert.True(t, filter(sessionEvent("session-1", api.EventTypeRunCompleted)))
	assert.False(t, filter(sessionEvent("session-1", api.EventTypeStepRecorded)))
	assert.False(t, filter(sessionEvent("session-2", api.EventTypeRunCompleted)))
}

func TestOrFilters(t *testing.T) {
	filter := events.OrFilters(
		events.FilterSession("session-1"),
		events.FilterTypes(api.EventTypeRunCompleted),
	)

	assert.True(t, filter(sessionEvent("session-1", api.EventTypeStepRecorded)))
	assert.True(t, filter(sessionEvent("session-2", api.EventTypeRunCompleted)))
	assert.False(t, filter(sessionEvent("session-2", api.EventTypeStepRecorded)))
}

func TestEmptyFilters(t *testing.T) {
	ev := sessionEvent("session-1", api.EventTypeContentShown)
	assert.True(t, events.AndFilters()(ev))
	assert.False(t, events.OrFilters()(ev))
	assert.True(t, events.All(ev))
}

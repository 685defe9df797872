package api

import "time"

type (
	// EventType identifies the kind of run event
	EventType string

	// Event is published by hosts as a run progresses. The hub stamps each
	// event with a sequence number that increases across all sessions
	Event struct {
		Timestamp time.Time `json:"timestamp"`
		Data      any       `json:"data,omitempty"`
		Type      EventType `json:"type"`
		SessionID SessionID `json:"session_id,omitempty"`
		StepID    StepID    `json:"step_id,omitempty"`
		Sequence  int64     `json:"sequence"`
	}

	// ContentShownEvent is emitted when a content directive is displayed
	ContentShownEvent struct {
		Markup  string        `json:"markup"`
		Missing []Requirement `json:"missing,omitempty"`
	}

	// EndpointCalledEvent is emitted before an API call is performed
	EndpointCalledEvent struct {
		Args        RequestArgs `json:"args"`
		Permalink   string      `json:"permalink"`
		Description string      `json:"description"`
		Method      string      `json:"method"`
		URL         string      `json:"url"`
	}

	// ResponseReceivedEvent is emitted once an API call returns
	ResponseReceivedEvent struct {
		Response *Response `json:"response"`
		Verified bool      `json:"verified"`
		Error    string    `json:"error,omitempty"`
	}

	// StepRecordedEvent is emitted when a step is recorded into StepState
	StepRecordedEvent struct {
		Result *StepResult `json:"result"`
		Next   int         `json:"next"`
		Total  int         `json:"total"`
	}

	// RunCompletedEvent is emitted once the last step of a run is recorded
	RunCompletedEvent struct {
		Steps []StepID `json:"steps"`
	}
)

const (
	EventTypeContentShown     EventType = "content_shown"
	EventTypeEndpointCalled   EventType = "endpoint_called"
	EventTypeResponseReceived EventType = "response_received"
	EventTypeStepRecorded     EventType = "step_recorded"
	EventTypeRunCompleted     EventType = "run_completed"
)

// NewEvent creates an event stamped with the current time
func NewEvent(typ EventType, step StepID, data any) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      typ,
		StepID:    step,
		Data:      data,
	}
}

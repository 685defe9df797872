package session

import (
	"context"
	"fmt"
	"time"

	"github.com/kode4food/timebox"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// TimeboxStore keeps each session as an event-sourced aggregate in a
	// timebox store. Every change appends an event to the session's log,
	// and a writer that loses the race for the log's next sequence gets
	// ErrConflict. Sessions expire after the configured TTL without activity
	TimeboxStore struct {
		exec *timebox.Executor[*sessionRecord]
		ttl  time.Duration
	}

	// SessionDeletedEvent is appended when a session is abandoned
	SessionDeletedEvent struct {
		ID api.SessionID `json:"id"`
	}

	sessionRecord struct {
		Session *api.Session `json:"session"`
		Touched time.Time    `json:"touched"`
	}

	sessionAggregator = timebox.Aggregator[*sessionRecord]
)

const (
	EventSessionCreated      timebox.EventType = "session_created"
	EventSessionUpdated      timebox.EventType = "session_updated"
	EventSessionStepRecorded timebox.EventType = "session_step_recorded"
	EventSessionDeleted      timebox.EventType = "session_deleted"

	sessionPrefix = "session"
)

var _ Store = (*TimeboxStore)(nil)

var sessionAppliers = timebox.Appliers[*sessionRecord]{
	EventSessionCreated:      timebox.MakeApplier(sessionChanged),
	EventSessionUpdated:      timebox.MakeApplier(sessionChanged),
	EventSessionStepRecorded: timebox.MakeApplier(sessionChanged),
	EventSessionDeleted:      timebox.MakeApplier(sessionDeleted),
}

// NewTimeboxStore creates a store appending session events to store. The
// caller owns the store lifecycle
func NewTimeboxStore(store *timebox.Store, ttl time.Duration) *TimeboxStore {
	return &TimeboxStore{
		exec: timebox.NewExecutor(store, newSessionRecord, sessionAppliers),
		ttl:  ttl,
	}
}

// Create appends the created event for a new session
func (t *TimeboxStore) Create(ctx context.Context, s *api.Session) error {
	if s == nil {
		return ErrNoSession
	}
	_, err := t.exec.Exec(ctx, aggregateID(s.ID),
		func(rec *sessionRecord, ag *sessionAggregator) error {
			if t.live(rec) {
				return fmt.Errorf("%w: %s", ErrExists, s.ID)
			}
			return timebox.Raise(ag, EventSessionCreated, s)
		},
	)
	return err
}

// Get returns a copy of the session projected from its event log
func (t *TimeboxStore) Get(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	rec, err := t.exec.Exec(ctx, aggregateID(id),
		func(*sessionRecord, *sessionAggregator) error {
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !t.live(rec) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneSession(rec.Session), nil
}

// Update applies fn to a copy of the session and appends the result. fn
// runs at most once: if another writer appends to the session's log first,
// ErrConflict is returned and the result of fn is discarded
func (t *TimeboxStore) Update(
	ctx context.Context, id api.SessionID, fn UpdateFunc,
) (*api.Session, error) {
	var res *api.Session
	attempted := false
	_, err := t.exec.Exec(ctx, aggregateID(id),
		func(rec *sessionRecord, ag *sessionAggregator) error {
			// The executor retries commands on a sequence conflict
			if attempted {
				return fmt.Errorf("%w: %s", ErrConflict, id)
			}
			attempted = true

			if !t.live(rec) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			next := cloneSession(rec.Session)
			if err := fn(next); err != nil {
				return err
			}
			res = next
			return timebox.Raise(ag, updateEvent(rec.Session, next), next)
		},
	)
	if err != nil {
		return nil, err
	}
	return cloneSession(res), nil
}

// Delete appends the deleted event. The session's log is retained
func (t *TimeboxStore) Delete(ctx context.Context, id api.SessionID) error {
	_, err := t.exec.Exec(ctx, aggregateID(id),
		func(rec *sessionRecord, ag *sessionAggregator) error {
			if !t.live(rec) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return timebox.Raise(ag, EventSessionDeleted,
				SessionDeletedEvent{ID: id},
			)
		},
	)
	return err
}

func (t *TimeboxStore) live(rec *sessionRecord) bool {
	if rec == nil || rec.Session == nil {
		return false
	}
	return t.ttl <= 0 || time.Since(rec.Touched) < t.ttl
}

func newSessionRecord() *sessionRecord {
	return nil
}

func aggregateID(id api.SessionID) timebox.AggregateID {
	return timebox.NewAggregateID(sessionPrefix, timebox.ID(id))
}

func updateEvent(prev, next *api.Session) timebox.EventType {
	if next.Progress.Next > prev.Progress.Next {
		return EventSessionStepRecorded
	}
	return EventSessionUpdated
}

func sessionChanged(
	_ *sessionRecord, ev *timebox.Event, s *api.Session,
) *sessionRecord {
	if s == nil {
		return nil
	}
	if s.Progress.State == nil {
		s.Progress.State = api.StepState{}
	}
	return &sessionRecord{
		Session: s,
		Touched: ev.Timestamp,
	}
}

func sessionDeleted(
	*sessionRecord, *timebox.Event, SessionDeletedEvent,
) *sessionRecord {
	return nil
}

package events

import (
	"sync"
	"sync/atomic"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// Hub fans run events out to subscribers
	Hub struct {
		topic  topic.Topic[api.Event]
		prod   topic.Producer[api.Event]
		seq    atomic.Int64
		mu     sync.RWMutex
		closed bool
	}

	// Subscription delivers the events matching its filter until closed
	Subscription struct {
		cons   topic.Consumer[api.Event]
		filter Filter
		after  int64
		out    chan api.Event
		done   chan struct{}
		once   sync.Once
	}
)

const subscriptionBuffer = 64

// NewHub creates an event hub backed by a caravan topic
func NewHub() *Hub {
	t := caravan.NewTopic[api.Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish stamps the event with the next sequence number and sends it to
// every current subscriber. Events published after Close are dropped
func (h *Hub) Publish(ev api.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	ev.Sequence = h.seq.Add(1)
	h.prod.Send() <- ev
}

// Subscribe starts a subscription receiving events that pass filter. Only
// events published after Subscribe returns are delivered. A nil filter
// accepts everything
func (h *Hub) Subscribe(filter Filter) *Subscription {
	if filter == nil {
		filter = All
	}

	// Publishers hold the read lock while stamping and sending
	h.mu.Lock()
	after := h.seq.Load()
	cons := h.topic.NewConsumer()
	h.mu.Unlock()

	s := &Subscription{
		cons:   cons,
		filter: filter,
		after:  after,
		out:    make(chan api.Event, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// Close stops accepting events
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.prod.Close()
}

// Receive returns the channel events are delivered on. It is closed when
// the subscription ends
func (s *Subscription) Receive() <-chan api.Event {
	return s.out
}

// Sequence returns the sequence number the subscription started after
func (s *Subscription) Sequence() int64 {
	return s.after
}

// Close ends the subscription
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cons.Close()
	})
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.cons.Receive():
			if !ok {
				return
			}
			if ev.Sequence <= s.after || !s.filter(&ev) {
				continue
			}
			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
		}
	}
}

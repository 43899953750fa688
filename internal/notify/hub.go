// Package notify is the in-process publish/subscribe transport for real-time
// notifications. Topics are rooms derived from roles ("students", "donors").
//
// Publish never blocks: events go into a bounded queue drained by a single
// dispatcher goroutine, which fans them out to room subscribers. When the
// queue or a subscriber's buffer is full the event is dropped for that
// recipient, logged, and counted. Delivery is best effort.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event names.
const (
	EventStudentRequest = "student-request-notification"
	EventRequestUpdated = "request-updated"
)

// Rooms.
const (
	RoomDonors   = "donors"
	RoomStudents = "students"
)

// subscriberBuffer bounds how far a slow subscriber may fall behind.
const subscriberBuffer = 16

// Event is one notification addressed to a room.
type Event struct {
	Name string
	Room string
	Data any
}

// RequestNotification announces a new request to donors.
type RequestNotification struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	AmountRequested int64     `json:"amountRequested"`
	AmountFunded    int64     `json:"amountFunded"`
	StudentName     string    `json:"studentName"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RequestUpdate reports new funding totals of a request.
type RequestUpdate struct {
	ID           string `json:"id"`
	AmountFunded int64  `json:"amountFunded"`
	Status       string `json:"status"`
}

// Publisher is what the write path depends on.
type Publisher interface {
	Publish(name string, data any, rooms ...string) bool
}

// Hub routes published events to subscribers of their rooms.
type Hub struct {
	queue chan Event
	done  chan struct{}
	once  sync.Once

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives the events of one room on C until closed.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	room string
	hub  *Hub
	once sync.Once
}

// NewHub creates a hub whose queue holds up to buffer pending events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		queue: make(chan Event, buffer),
		done:  make(chan struct{}),
		subs:  make(map[string]map[*Subscription]struct{}),
	}
}

// Publish enqueues one event per room and reports whether all were accepted.
// It never waits.
func (h *Hub) Publish(name string, data any, rooms ...string) bool {
	ok := true
	for _, room := range rooms {
		select {
		case <-h.done:
			return false
		default:
		}
		select {
		case h.queue <- Event{Name: name, Room: room, Data: data}:
			eventsPublished.WithLabelValues(name).Inc()
		default:
			ok = false
			eventsDropped.Inc()
			log.Warn().Str("event", name).Str("room", room).Msg("notification queue full; event dropped")
		}
	}
	return ok
}

// Run dispatches queued events until ctx is cancelled or Close is called.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.done:
			return
		case ev := <-h.queue:
			h.dispatch(ev)
		}
	}
}

// Close stops the hub and ends every subscription.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for room, set := range h.subs {
			for s := range set {
				close(s.ch)
			}
			delete(h.subs, room)
		}
	})
}

// Subscribe registers interest in room. The returned subscription must be
// closed by the caller. On a closed hub the channel is already closed.
func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, room: room, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		close(ch)
		return s
	default:
	}
	set, ok := h.subs[room]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[room] = set
	}
	set[s] = struct{}{}
	return s
}

// Subscribers reports how many subscriptions room currently has.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[room])
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		set, ok := h.subs[s.room]
		if !ok {
			return
		}
		if _, ok := set[s]; !ok {
			return
		}
		delete(set, s)
		close(s.ch)
		if len(set) == 0 {
			delete(h.subs, s.room)
		}
	})
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Room] {
		select {
		case s.ch <- ev:
		default:
			eventsDropped.Inc()
			log.Warn().Str("event", ev.Name).Str("room", ev.Room).Msg("subscriber too slow; event dropped")
		}
	}
}

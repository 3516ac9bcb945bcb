// Package hub fans container change events out to connected viewers.
// Subscriptions are keyed by generated ids so disconnect is O(1), and
// each subscriber owns a buffered channel so one slow viewer can never
// stall publication to the others.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/models"
)

// subscriberBuffer is the per-subscriber event queue depth. Events for
// a subscriber whose buffer is full are dropped for that subscriber
// only.
const subscriberBuffer = 16

// Subscription is one viewer's registration with the hub.
type Subscription struct {
	id     string
	userID string
	events chan *models.ChangeEvent
}

// ID returns the subscription handle.
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the channel on which matching events are delivered in
// publication order. The channel is closed when the subscription is
// removed or the hub shuts down.
func (s *Subscription) Events() <-chan *models.ChangeEvent {
	return s.events
}

// Hub is the process-wide change event broadcaster.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool

	log     zerolog.Logger
	dropped atomic.Int64
}

// New creates an empty hub.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]*Subscription),
		log:  log.With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers a viewer and returns its subscription. Returns
// nil if the hub is already closed.
func (h *Hub) Subscribe(userID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	sub := &Subscription{
		id:     uuid.New().String(),
		userID: userID,
		events: make(chan *models.ChangeEvent, subscriberBuffer),
	}
	h.subs[sub.id] = sub
	metrics.SSESubscribers.Set(float64(len(h.subs)))
	h.log.Debug().Str("subscription", sub.id).Str("user", userID).Msg("viewer subscribed")
	return sub
}

// Unsubscribe removes a subscription and closes its event channel.
// Safe to call more than once.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.events)
	metrics.SSESubscribers.Set(float64(len(h.subs)))
	h.log.Debug().Str("subscription", id).Msg("viewer unsubscribed")
}

// Publish delivers the event to every subscriber owning the affected
// container. Never blocks: a full subscriber buffer drops the event
// for that subscriber.
func (h *Hub) Publish(event *models.ChangeEvent) {
	if event == nil || event.Container == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if sub.userID != event.Container.UserID {
			continue
		}
		select {
		case sub.events <- event:
		default:
			metrics.SSEEventsDropped.Inc()
			dropped := h.dropped.Add(1)
			if dropped == 1 || dropped%100 == 0 {
				h.log.Warn().
					Str("subscription", sub.id).
					Int64("total_dropped", dropped).
					Msg("subscriber buffer full, dropping event")
			}
		}
	}
}

// Subscribers returns the number of connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the total number of events dropped for slow
// subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close shuts the hub down, closing every subscriber channel. Further
// Subscribe and Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
	metrics.SSESubscribers.Set(0)
}

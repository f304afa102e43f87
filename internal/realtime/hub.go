package realtime

import (
	"fmt"
	"log/slog"
	"sync"
)

// subscriptionBuffer is how many undelivered events a subscriber may hold.
// Subscribers re-read state on every event, so later events are dropped
// while one is still queued.
const subscriptionBuffer = 1

// Event is a change notification for one user's data.
type Event struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewEvent creates an Event with the Type field derived from entity and action.
func NewEvent(entity, action, id string) Event {
	return Event{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Subscription receives the events published for one key.
type Subscription struct {
	hub *Hub
	key int64
	ch  chan Event
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unsubscribes and closes the channel. It is safe to call twice.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans events out to the subscribers of each key, normally a user id.
// Publishing never blocks.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[int64]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(key int64) *Subscription {
	s := &Subscription{hub: h, key: key, ch: make(chan Event, subscriptionBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[key] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.key]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, s.key)
	}
}

// Publish delivers ev to every subscriber of key.
func (h *Hub) Publish(key int64, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[key] {
		select {
		case s.ch <- ev:
		default:
			// Subscriber already has an event queued
		}
	}
	h.logger.Debug("published", "key", key, "type", ev.Type, "subscribers", len(h.subs[key]))
}

// SubscriberCount returns the number of subscribers for key.
func (h *Hub) SubscriberCount(key int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Total returns the number of subscribers across all keys.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

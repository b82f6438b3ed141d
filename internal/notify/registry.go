// Package notify implements in-process change notification for topics and
// applications. Mutating services publish coarse event tags; websocket
// clients subscribed to a specific entity receive them. Delivery is
// at-most-once: a slow consumer drops events rather than blocking the
// mutation that produced them.
package notify

import (
	"log/slog"
	"sync"
)

// subscriptionBuffer bounds how many undelivered events a subscriber may
// accumulate before further events are dropped.
const subscriptionBuffer = 16

type subKey struct {
	entityType string
	entityID   int64
}

// Subscription is a single consumer's view of an entity's event stream.
type Subscription struct {
	registry *Registry
	key      subKey
	events   chan string
}

// Events returns the channel event tags are delivered on. The channel is
// closed when the subscription is cancelled.
func (s *Subscription) Events() <-chan string {
	return s.events
}

// Cancel detaches the subscription and closes its event channel.
func (s *Subscription) Cancel() {
	s.registry.unregister(s)
}

// Registry fans events out to subscribers keyed by entity type and id.
// It satisfies domain.ChangeNotifier.
type Registry struct {
	mu     sync.Mutex
	subs   map[subKey]map[*Subscription]struct{}
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		subs:   make(map[subKey]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Register subscribes to events for one entity.
func (r *Registry) Register(entityType string, entityID int64) *Subscription {
	sub := &Subscription{
		registry: r,
		key:      subKey{entityType: entityType, entityID: entityID},
		events:   make(chan string, subscriptionBuffer),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[sub.key]
	if !ok {
		set = make(map[*Subscription]struct{})
		r.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers an event tag to every subscriber of the entity.
// It never blocks: subscribers with a full buffer miss the event.
func (r *Registry) Publish(entityType string, entityID int64, eventTag string) {
	key := subKey{entityType: entityType, entityID: entityID}
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs[key] {
		select {
		case sub.events <- eventTag:
		default:
			r.logger.Warn("dropping event for slow subscriber",
				"entity_type", entityType, "entity_id", entityID, "event", eventTag)
		}
	}
}

func (r *Registry) unregister(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[sub.key]
	if !ok {
		return
	}
	if _, member := set[sub]; !member {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(r.subs, sub.key)
	}
	close(sub.events)
}

package camera

import (
	"encoding/json"
	"sync"
)

// subscriberQueueSize bounds each subscriber's pending notifications. A full
// queue drops the newest message for that subscriber only; mode is
// re-queryable, so a drop delays a slow consumer's view by one tick at most.
const subscriberQueueSize = 20

// Subscriber is a handle to a camera's notification stream. It is owned by
// the connection that created it and must be released via Unsubscribe when
// the connection goes away.
type Subscriber struct {
	ch chan json.RawMessage
}

// Events returns the channel of serialized status payloads.
func (s *Subscriber) Events() <-chan json.RawMessage {
	return s.ch
}

// Broadcaster fans out mode-change notifications to the camera's
// subscribers. Notify never blocks, regardless of how slow any subscriber
// is.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber with a bounded queue.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan json.RawMessage, subscriberQueueSize)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Count returns the number of registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Notify serializes the status once and enqueues it to every subscriber.
// Subscribers with a full queue miss this message; others are unaffected.
func (b *Broadcaster) Notify(status Status) {
	payload, err := json.Marshal(status)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- payload:
		default:
		}
	}
}

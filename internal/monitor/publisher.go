package monitor

import (
	"sync"

	"codeberg.org/mutker/resmon/internal/logger"
)

// Publisher holds the most recently published snapshot and fans events
// out to subscribers. Broadcast never blocks: each subscriber owns a
// bounded channel and the oldest pending event is dropped when it
// fills, so a slow consumer can only lose its own events.
type Publisher struct {
	mu     sync.RWMutex
	latest *CombinedSnapshot
	subs   map[*Subscription]struct{}
}

// Subscription is one registered listener on the event stream.
type Subscription struct {
	pub    *Publisher
	events chan Event
	once   sync.Once
}

// Events returns the subscriber's channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription and closes its channel.
// Safe to call more than once. The channel is closed under the
// publisher lock, which Broadcast also holds while sending, so a
// concurrent Broadcast can never hit a closed channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.pub.mu.Lock()
		defer s.pub.mu.Unlock()

		delete(s.pub.subs, s)
		close(s.events)
	})
}

func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[*Subscription]struct{}),
	}
}

// SetLatest atomically replaces the stored snapshot.
func (p *Publisher) SetLatest(snapshot CombinedSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = &snapshot
}

// Snapshot returns a deep copy of the latest snapshot, or ok=false if
// no tick has completed yet. Readers never observe a torn snapshot.
func (p *Publisher) Snapshot() (CombinedSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return CombinedSnapshot{}, false
	}

	return p.latest.clone(), true
}

// Subscribe registers a listener with the default buffer size.
func (p *Publisher) Subscribe() *Subscription {
	return p.SubscribeBuffered(defaultSubscriberBuffer)
}

// SubscribeBuffered registers a listener with an explicit buffer size.
func (p *Publisher) SubscribeBuffered(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}

	sub := &Subscription{
		pub:    p,
		events: make(chan Event, buffer),
	}

	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()

	return sub
}

// Broadcast delivers event to every subscriber without blocking the
// caller. Delivery is best-effort per subscriber: sends are
// non-blocking channel enqueues, so the read lock is only held for a
// map walk.
func (p *Publisher) Broadcast(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for sub := range p.subs {
		deliver(sub, event)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.subs)
}

func deliver(sub *Subscription, event Event) {
	select {
	case sub.events <- event:
		return
	default:
	}

	// Buffer full: drop the oldest pending event and retry once. The
	// second send can still miss if the subscriber drained and refilled
	// concurrently; that event is dropped too.
	select {
	case <-sub.events:
	default:
	}

	select {
	case sub.events <- event:
	default:
		logger.Debug().Str("event_type", string(event.Type)).Msg("Dropped event for slow subscriber")
	}
}

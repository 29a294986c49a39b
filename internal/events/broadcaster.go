package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/obs"
)

// CartCount is the package count of a session cart at a point in time.
type CartCount struct {
	SessionID string    `json:"sessionId"`
	Count     int       `json:"count"`
	At        time.Time `json:"at"`
}

// Broadcaster delivers cart counts to the subscribers of a session. Delivery
// never blocks the publisher: a subscriber that has not consumed its previous
// count gets it replaced by the newest one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[uint64]chan CartCount
	nextID uint64

	// Bus, when set, receives a cart.changed event for every published count.
	Bus    *Bus
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewBroadcaster constructs a broadcaster without subscribers.
func NewBroadcaster(bus *Bus, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[uint64]chan CartCount), Bus: bus, Logger: logger}
}

// Subscribe registers a subscriber for sessionID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan CartCount, func()) {
	ch := make(chan CartCount, 1)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[string]map[uint64]chan CartCount)
	}
	b.nextID++
	id := b.nextID
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[uint64]chan CartCount)
	}
	b.subs[sessionID][id] = ch
	b.mu.Unlock()
	if obs.CartSubscribers != nil {
		obs.CartSubscribers.Inc()
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[sessionID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
			b.mu.Unlock()
			if obs.CartSubscribers != nil {
				obs.CartSubscribers.Dec()
			}
		})
	}
	return ch, cancel
}

// PublishCount satisfies cart.Publisher.
func (b *Broadcaster) PublishCount(ctx context.Context, sessionID string, count int) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	b.Publish(ctx, CartCount{SessionID: sessionID, Count: count, At: now().UTC()})
}

// Publish delivers c to local subscribers and emits it on the bus.
func (b *Broadcaster) Publish(ctx context.Context, c CartCount) {
	b.Deliver(c)
	if b.Bus == nil {
		return
	}
	if _, err := b.Bus.Emit(ctx, TopicCartChanged, c.SessionID, c); err != nil {
		b.Logger.Warn().Err(err).Str("session_id", c.SessionID).Msg("cart count fanout failed")
	}
}

// Deliver hands c to the local subscribers of its session only.
func (b *Broadcaster) Deliver(c CartCount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[c.SessionID] {
		select {
		case ch <- c:
			continue
		default:
		}
		// Replace the stale value; the buffer holds at most one count.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribers reports the number of subscribers of sessionID.
func (b *Broadcaster) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// Package events fans session change notifications out to a user's open streams.
package events

import (
	"sync"
	"time"
)

// Session event types.
const (
	SignedIn       = "signed_in"
	SignedOut      = "signed_out"
	TokenRefreshed = "token_refreshed"
	ProfileUpdated = "profile_updated"
	RoleChanged    = "role_changed"
)

// Event is one session change.
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// Subscription receives events for one user until cancelled.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	userID string
	broker *Broker
	once   sync.Once
}

// Cancel detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.broker.remove(s) })
}

// Broker keeps per-user subscriber sets. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewBroker creates a broker with the given per-subscriber buffer.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe opens a stream for userID.
func (b *Broker) Subscribe(userID string) *Subscription {
	ch := make(chan Event, b.buffer)
	s := &Subscription{C: ch, ch: ch, userID: userID, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.userID)
		}
	}
	close(s.ch)
}

// Publish delivers an event of type typ to every stream of userID and returns
// how many received it.
func (b *Broker) Publish(userID, typ string) int {
	ev := Event{Type: typ, UserID: userID, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for s := range b.subs[userID] {
		select {
		case s.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of open streams for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

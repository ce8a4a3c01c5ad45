package realtime

import (
	"context"
	"sync"
	"time"
)

// PostEvent is the insert notification pushed to live feed subscribers.
// It carries the full annotated record so a freshly pushed post renders
// with its real counters instead of blanks.
type PostEvent struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	UserID       string    `json:"user_id"`
	IsAnonymous  bool      `json:"is_anonymous"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
}

// Broker distributes post-insert events to live subscribers
type Broker interface {
	// Publish delivers an event to all current subscribers
	Publish(ctx context.Context, event PostEvent) error

	// Subscribe returns a channel of events and an unsubscribe function.
	// The channel is closed when the unsubscribe function is called or
	// the broker shuts down.
	Subscribe(ctx context.Context) (<-chan PostEvent, func(), error)

	// Close shuts down the broker and closes all subscriber channels
	Close() error
}

// subscriberBufferSize bounds how far a slow subscriber may fall behind
// before events are dropped for it
const subscriberBufferSize = 16

// LocalBroker is an in-process broker used when Redis is not configured.
// Good for a single server instance; events do not cross processes.
type LocalBroker struct {
	mu     sync.Mutex
	subs   map[int]chan PostEvent
	nextID int
	closed bool
}

// NewLocalBroker creates a new in-process broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs: make(map[int]chan PostEvent),
	}
}

// Publish delivers an event to all current subscribers
func (b *LocalBroker) Publish(ctx context.Context, event PostEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop the event for it.
			// The periodic reconciliation reload repairs the gap.
		}
	}
	return nil
}

// Subscribe registers a new subscriber
func (b *LocalBroker) Subscribe(ctx context.Context) (<-chan PostEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan PostEvent, subscriberBufferSize)
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, unsubscribe, nil
}

// Close shuts down the broker
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}

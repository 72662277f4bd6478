package runner

import (
	"sync"

	"github.com/google/uuid"
)

// Message is one event on a session's apply stream: either an output line or
// the terminal result (Done set, Result non-nil).
type Message struct {
	Line   string
	Done   bool
	Result *Result
}

// Broker fans apply output out to subscribers, decoupling the runner from
// the transport streaming to the front-end. Topics are per session, so
// unrelated sessions never contend.
type Broker struct {
	mu     sync.Mutex
	topics map[uuid.UUID][]chan Message
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{topics: make(map[uuid.UUID][]chan Message)}
}

// Subscribe registers a subscriber for a session's stream. The returned
// cancel function must be called when the subscriber is done; it is safe to
// call after Close.
func (b *Broker) Subscribe(sessionID uuid.UUID) (<-chan Message, func()) {
	ch := make(chan Message, 256)

	b.mu.Lock()
	b.topics[sessionID] = append(b.topics[sessionID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.topics[sessionID]
		for i, subscriber := range subscribers {
			if subscriber == ch {
				b.topics[sessionID] = append(subscribers[:i], subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}

	return ch, cancel
}

// Publish delivers one output line to all subscribers of a session.
// Slow subscribers with a full buffer miss the line rather than stalling the
// apply stream.
func (b *Broker) Publish(sessionID uuid.UUID, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subscriber := range b.topics[sessionID] {
		select {
		case subscriber <- Message{Line: line}:
		default:
		}
	}
}

// Close delivers the terminal result to all subscribers and removes the topic.
func (b *Broker) Close(sessionID uuid.UUID, result Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subscriber := range b.topics[sessionID] {
		select {
		case subscriber <- Message{Done: true, Result: &result}:
		default:
		}
		close(subscriber)
	}
	delete(b.topics, sessionID)
}

package daemon

import (
	"sync"

	"go.olrik.dev/idlewatch/internal/activity"
)

const subscriberBuffer = 100

// Broadcaster fans values out to subscribers and keeps a bounded history
// for late joiners. Slow subscribers miss values instead of blocking.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	clients map[chan T]struct{}
	history *activity.RingBuffer[T]
	maxHist int
}

// NewBroadcaster creates a broadcaster keeping historySize values.
func NewBroadcaster[T any](historySize int) *Broadcaster[T] {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Broadcaster[T]{
		clients: make(map[chan T]struct{}),
		history: activity.NewRingBuffer[T](historySize),
		maxHist: historySize,
	}
}

// Subscribe adds a new client.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch, _ := b.SubscribeWithHistory(0)
	return ch
}

// SubscribeWithHistory adds a new client and returns up to historyLines of
// the most recent values. History is returned separately so it never
// competes with live values for channel space.
func (b *Broadcaster[T]) SubscribeWithHistory(historyLines int) (chan T, []T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	b.clients[ch] = struct{}{}
	return ch, b.history.Last(historyLines)
}

// Unsubscribe removes and closes a client channel. Unknown channels are
// ignored.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

// Broadcast records v in history and sends it to every client.
func (b *Broadcaster[T]) Broadcast(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history.Push(v)
	for ch := range b.clients {
		select {
		case ch <- v:
		default:
			// Client buffer full, skip it
		}
	}
}

// History returns up to n of the most recent values.
func (b *Broadcaster[T]) History(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Last(n)
}

// ClearHistory clears the history buffer.
func (b *Broadcaster[T]) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.Clear()
}

// Subscribers returns the number of connected clients.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

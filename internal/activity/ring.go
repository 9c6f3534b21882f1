package activity

// RingBuffer is a fixed-size circular buffer. It is not safe for concurrent
// use; callers serialize access.
type RingBuffer[T any] struct {
	items []T
	size  int
	head  int // Next write position
	count int
}

// NewRingBuffer creates a ring buffer holding at most size items.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer[T]{
		items: make([]T, size),
		size:  size,
	}
}

// Push adds an item, evicting the oldest when full.
func (rb *RingBuffer[T]) Push(item T) {
	rb.items[rb.head] = item
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// Items returns all items, oldest first.
func (rb *RingBuffer[T]) Items() []T {
	return rb.Last(rb.count)
}

// Last returns up to n of the newest items, oldest first.
func (rb *RingBuffer[T]) Last(n int) []T {
	if n > rb.count {
		n = rb.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]T, n)
	start := rb.head - n
	if start < 0 {
		start += rb.size
	}
	for i := 0; i < n; i++ {
		result[i] = rb.items[(start+i)%rb.size]
	}
	return result
}

// DropWhile evicts items from the oldest end while drop returns true.
func (rb *RingBuffer[T]) DropWhile(drop func(T) bool) int {
	var zero T
	dropped := 0
	for rb.count > 0 {
		oldest := (rb.head - rb.count + rb.size) % rb.size
		if !drop(rb.items[oldest]) {
			break
		}
		rb.items[oldest] = zero
		rb.count--
		dropped++
	}
	return dropped
}

// Len returns the number of items in the buffer.
func (rb *RingBuffer[T]) Len() int {
	return rb.count
}

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

// Clear removes all items.
func (rb *RingBuffer[T]) Clear() {
	clear(rb.items)
	rb.head = 0
	rb.count = 0
}

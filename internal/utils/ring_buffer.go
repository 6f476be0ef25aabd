package utils

import "sync"

// RingBuffer is a fixed size, concurrency safe buffer. Pushing into a full
// buffer evicts the oldest element. Elements are kept oldest first.
//
//	rb := NewRingBuffer[int](3)
//	rb.Push(1)
//	rb.Push(2)
//	rb.Push(3)
//	rb.Push(4) // evicts 1
//	fmt.Println(rb.ToSlice()) // [2 3 4]
type RingBuffer[T any] struct {
	data  []T
	size  int
	count int
	head  int // oldest element
	tail  int // next write position
	mu    sync.RWMutex
}

// NewRingBuffer panics unless size is positive.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{
		data: make([]T, size),
		size: size,
	}
}

// Push appends item, evicting the oldest element when full.
func (rb *RingBuffer[T]) Push(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.tail] = item
	rb.tail = (rb.tail + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	} else {
		rb.head = (rb.head + 1) % rb.size
	}
}

// Len returns the number of stored elements.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

// At returns the i-th element, 0 being the oldest. It panics when i is out of [0, Len()).
func (rb *RingBuffer[T]) At(i int) T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if i < 0 || i >= rb.count {
		panic("index out of range")
	}
	return rb.at(i)
}

func (rb *RingBuffer[T]) at(i int) T {
	return rb.data[(rb.head+i)%rb.size]
}

// ToSlice copies the elements, oldest first.
func (rb *RingBuffer[T]) ToSlice() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	result := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.at(i)
	}
	return result
}

// Last copies at most n elements, newest first. n <= 0 means all of them.
func (rb *RingBuffer[T]) Last(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if n <= 0 || n > rb.count {
		n = rb.count
	}
	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = rb.at(rb.count - 1 - i)
	}
	return result
}

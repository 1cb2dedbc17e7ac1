package containers

// RingQueue is a bounded FIFO.
type RingQueue[T any] struct {
	data       []T
	size       int
	readIndex  int
	writeIndex int
	count      int
}

func NewRingQueue[T any](size int) *RingQueue[T] {
	return &RingQueue[T]{
		data: make([]T, size),
		size: size,
	}
}

// Enqueue adds an element at the back. Returns false when full.
func (rq *RingQueue[T]) Enqueue(value T) bool {
	if rq.IsFull() {
		return false
	}
	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % rq.size
	rq.count++
	return true
}

// Dequeue removes and returns the front element.
func (rq *RingQueue[T]) Dequeue() (T, bool) {
	var zero T
	if rq.IsEmpty() {
		return zero, false
	}
	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % rq.size
	rq.count--
	return value, true
}

// Peek returns the front element without removing it.
func (rq *RingQueue[T]) Peek() (T, bool) {
	if rq.IsEmpty() {
		var zero T
		return zero, false
	}
	return rq.data[rq.readIndex], true
}

func (rq *RingQueue[T]) Len() int {
	return rq.count
}

func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.count == 0
}

func (rq *RingQueue[T]) IsFull() bool {
	return rq.count == rq.size
}

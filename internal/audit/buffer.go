package audit

import "sync"

// ringBuffer is a bounded, thread-safe queue of audit entries. When full,
// the oldest entry is dropped to make room for new ones.
type ringBuffer struct {
	mu       sync.Mutex
	entries  []*Entry
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ringBuffer{
		entries:  make([]*Entry, capacity),
		capacity: capacity,
	}
}

// enqueue adds an entry, dropping the oldest if necessary. Returns the
// dropped entry, or nil if nothing was dropped.
func (b *ringBuffer) enqueue(entry *Entry) *Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var dropped *Entry
	if b.count >= b.capacity {
		dropped = b.entries[b.tail]
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

// dequeueBatch removes up to n entries from the buffer.
func (b *ringBuffer) dequeueBatch(n int) []*Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	result := make([]*Entry, n)
	for i := 0; i < n; i++ {
		result[i] = b.entries[b.tail]
		b.entries[b.tail] = nil
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

func (b *ringBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) droppedTotal() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

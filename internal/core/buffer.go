package core

import "sync"

// DefaultBufferCapacity is the number of entries kept when no capacity
// is configured.
const DefaultBufferCapacity = 10

// LogBuffer is a bounded, newest-first container of log entries. All
// mutations go through Seed and Prepend, which are serialized by a
// mutex so that the snapshot path and the stream path can call in
// concurrently. Once closed, the buffer ignores every further
// mutation.
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
	closed   bool
}

// NewLogBuffer returns an empty buffer holding at most capacity
// entries. A non-positive capacity falls back to
// DefaultBufferCapacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &LogBuffer{
		entries:  make([]LogEntry, 0, capacity),
		capacity: capacity,
	}
}

// Seed replaces the buffer contents with entries, keeping at most the
// first capacity of them in the order given. It reports whether the
// buffer accepted the mutation.
func (b *LogBuffer) Seed(entries []LogEntry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	n := min(len(entries), b.capacity)
	seeded := make([]LogEntry, n, b.capacity)
	copy(seeded, entries[:n])
	b.entries = seeded
	return true
}

// Prepend inserts entry at index 0 and drops whatever falls past the
// capacity. It reports whether the buffer accepted the mutation.
func (b *LogBuffer) Prepend(entry LogEntry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, "")
	}
	// Shift right by one; the tail entry falls off when full.
	copy(b.entries[1:], b.entries[:len(b.entries)-1])
	b.entries[0] = entry
	return true
}

// Entries returns a copy of the current contents, newest first.
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Capacity returns the maximum number of entries the buffer retains.
func (b *LogBuffer) Capacity() int {
	return b.capacity
}

// Close freezes the buffer. Contents stay readable, but Seed and
// Prepend become no-ops. Close is safe to call multiple times.
func (b *LogBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

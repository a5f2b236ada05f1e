package logging

import "sync"

// DefaultBufferSize is the number of entries kept in interactive mode.
const DefaultBufferSize = 100

// LogBuffer is a fixed-size ring of recent entries.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	start   int
	count   int
}

// NewLogBuffer creates a buffer holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{entries: make([]Entry, size)}
}

// Add appends e, overwriting the oldest entry when full.
func (b *LogBuffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[(b.start+b.count)%len(b.entries)] = e
	if b.count < len(b.entries) {
		b.count++
		return
	}
	b.start = (b.start + 1) % len(b.entries)
}

// Last returns up to n of the most recent entries, oldest first.
func (b *LogBuffer) Last(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n = min(max(n, 0), b.count)
	out := make([]Entry, n)
	offset := b.count - n
	for i := range n {
		out[i] = b.entries[(b.start+offset+i)%len(b.entries)]
	}
	return out
}

// Entries returns every buffered entry, oldest first.
func (b *LogBuffer) Entries() []Entry {
	return b.Last(b.Len())
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

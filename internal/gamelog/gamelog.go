// Package gamelog keeps the scrolling activity log: an append-only,
// capacity-bounded sequence of server-authored event lines.
package gamelog

import (
	"strings"
	"sync"
)

// MaxEntries bounds the buffer. After any append the oldest entries are
// trimmed until at most this many remain; trimming is a pure FIFO cut
// and never reorders.
const MaxEntries = 20

// Buffer is the activity log. The zero value is not usable; call New.
type Buffer struct {
	mu      sync.Mutex
	entries []string
}

func New() *Buffer {
	return &Buffer{entries: make([]string, 0, MaxEntries)}
}

// Append inserts entry at the tail, evicting from the head if the
// buffer is over capacity.
func (b *Buffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
	if n := len(b.entries); n > MaxEntries {
		b.entries = append(b.entries[:0], b.entries[n-MaxEntries:]...)
	}
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a copy of the retained entries, oldest first.
func (b *Buffer) Entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// Render joins the retained entries in order, one per line.
func (b *Buffer) Render() string {
	return strings.Join(b.Entries(), "\n")
}

// Package window implements the bounded ring buffer backing the
// window-wrapped step: the N most recently seen records, with the current
// record already visible to its own step at index -1.
package window

import "github.com/stelp/stelp/internal/record"

// Entry is one snapshot stored in the window.
type Entry struct {
	IsText      bool
	Text        string
	Value       record.Value
	LineNum     int64
	RecordCount int64
}

// Buffer is a ring buffer of the `size` most recent Entries, adapted from
// a generic ring-buffer deque: a fixed backing slice with
// head/tail indices instead of a reallocating slice, so steady-state
// pushes never allocate once the buffer reaches its target size.
type Buffer struct {
	size  int
	items []Entry
	head  int
	count int
}

func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{size: size, items: make([]Entry, size)}
}

// Push appends e, evicting the oldest entry once the buffer is at capacity.
// The original implementation this is ported from appends first and trims
// second, so the buffer transiently holds size+1 entries mid-call; here the
// ring buffer overwrites the oldest slot directly, which is the fixed-slice
// equivalent of that same append-then-evict order.
func (b *Buffer) Push(e Entry) {
	idx := (b.head + b.count) % b.size
	b.items[idx] = e
	if b.count < b.size {
		b.count++
	} else {
		b.head = (b.head + 1) % b.size
	}
}

// Len returns the number of entries currently buffered (<= configured size).
func (b *Buffer) Len() int { return b.count }

// At returns the entry at index, where 0 is the oldest and Len()-1 is the
// most recently pushed entry (the -1 position scripts see).
func (b *Buffer) At(index int) (Entry, bool) {
	if index < 0 || index >= b.count {
		return Entry{}, false
	}
	return b.items[(b.head+index)%b.size], true
}

// Latest returns the most recently pushed entry (script index -1).
func (b *Buffer) Latest() (Entry, bool) {
	if b.count == 0 {
		return Entry{}, false
	}
	return b.At(b.count - 1)
}

// FromNewest returns entries ordered most-recent-first (index 0 == -1 in
// script terms, the record currently being processed). The script host's
// buildWindowTable reverses this into the `window` table, where index 1 is
// the oldest entry.
func (b *Buffer) FromNewest() []Entry {
	out := make([]Entry, b.count)
	for i := 0; i < b.count; i++ {
		e, _ := b.At(b.count - 1 - i)
		out[i] = e
	}
	return out
}

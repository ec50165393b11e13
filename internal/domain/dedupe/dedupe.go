// Package dedupe tracks identifiers that have already been handled, such as
// game ids whose action block has been closed during partitioning.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id so it can be recorded again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map. Ids stay until unrecorded.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryDeduper creates an empty in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes an id from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

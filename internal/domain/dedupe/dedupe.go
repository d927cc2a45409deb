// Package dedupe tracks ballot ids so a ballot is counted at most once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 100_000

// Deduper records seen ballot IDs to ensure at-most-once application.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a ballot whose application failed can be retried.
	Unrecord(ctx context.Context, id string)

	// Size returns how many ids are currently remembered.
	Size() int64
}

// entry is a node in the recency list. head is the newest, tail the oldest.
type entry struct {
	id         string
	prev, next *entry
}

// inMemoryDeduper remembers ballot ids in a map plus a doubly linked list so
// that both eviction of the oldest id and Unrecord are O(1).
// maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*entry
	head    *entry
	tail    *entry
	maxSize int
	pool    sync.Pool
}

// NewInMemoryDeduper creates a deduper. The default bound is 100k ids.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*entry)
	d.pool.New = func() any { return &entry{} }
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	e := d.pool.Get().(*entry)
	e.id = id
	d.pushFront(e)
	d.seen[id] = e
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.seen[id]
	if !ok {
		return
	}
	d.remove(e)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the tail. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.remove(d.tail)
	}
}

func (d *inMemoryDeduper) pushFront(e *entry) {
	e.prev = nil
	e.next = d.head
	if d.head != nil {
		d.head.prev = e
	}
	d.head = e
	if d.tail == nil {
		d.tail = e
	}
}

// remove unlinks e, deletes it from the map and recycles it. Caller holds d.mu.
func (d *inMemoryDeduper) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.tail = e.prev
	}
	delete(d.seen, e.id)
	*e = entry{}
	d.pool.Put(e)
}

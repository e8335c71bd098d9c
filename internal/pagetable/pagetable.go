// File: internal/pagetable/pagetable.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity hash-indexed residency map (spec.md §4.2), grounded on
// original_source/pagetable.c: chained buckets, the same two-prime
// multiplicative hash, and a single "dead bucket" slot that makes delete
// and insert alternate by construction. Not safe for concurrent use on
// its own — callers hold the engine's global lock around every call, the
// same contract original_source/threadsupport.c enforces in C.

package pagetable

import (
	"github.com/momentics/jumbomem/api"
)

const (
	bigPrime1 = 34359738641
	bigPrime2 = 1152921504606847229
)

type bucket struct {
	entry *entry
	next  *bucket
}

type entry struct {
	index   api.PageIndex
	payload any
	pos     int // current index into Table.order
}

// Table implements api.PageTable.
type Table struct {
	capacity int
	buckets  []*bucket
	dead     *bucket
	order    []*entry
}

// New allocates a table that can hold up to capacity resident pages.
// The bucket array is sized generously relative to capacity to keep
// chains short, the way HASH_TABLE_SIZE in the original dwarfs any
// realistic local_pages value.
func New(capacity int) *Table {
	if capacity < 1 {
		capacity = 1
	}
	nbuckets := capacity*2 + 1
	return &Table{
		capacity: capacity,
		buckets:  make([]*bucket, nbuckets),
		order:    make([]*entry, 0, capacity),
	}
}

func (t *Table) hash(index api.PageIndex) int {
	h := (uint64(index) + bigPrime2) * bigPrime1
	return int(h % uint64(len(t.buckets)))
}

func (t *Table) findBucket(index api.PageIndex) (*bucket, *bucket, int) {
	h := t.hash(index)
	var prev *bucket
	for b := t.buckets[h]; b != nil; prev, b = b, b.next {
		if b.entry.index == index {
			return b, prev, h
		}
	}
	return nil, nil, h
}

// Insert adds a new resident page. Reuses the bucket most recently
// detached by Delete, exactly as original_source/pagetable.c's
// insert_pte reuses pt->dead_bucket.
func (t *Table) Insert(index api.PageIndex, payload any) error {
	if len(t.order) >= t.capacity {
		return api.NewStructuredError(api.ErrCodeInvariant, "page table overflow").
			WithContext("capacity", t.capacity)
	}
	if b, _, _ := t.findBucket(index); b != nil {
		return api.NewStructuredError(api.ErrCodeInvariant, "duplicate page table insert").
			WithContext("index", index)
	}

	e := &entry{index: index, payload: payload}
	var b *bucket
	if t.dead != nil {
		b = t.dead
		t.dead = nil
	} else {
		b = &bucket{}
	}
	b.entry = e
	h := t.hash(index)
	b.next = t.buckets[h]
	t.buckets[h] = b

	e.pos = len(t.order)
	t.order = append(t.order, e)
	return nil
}

// Delete removes index, caching the detached bucket for the very next
// Insert. Two Deletes with no intervening Insert, or deleting an absent
// key, is an invariant violation (spec.md §4.2) and returns an error
// rather than panicking so the caller's abort path can log and escalate.
func (t *Table) Delete(index api.PageIndex) error {
	if t.dead != nil {
		return api.NewStructuredError(api.ErrCodeInvariant,
			"two page table deletions with no intervening insertion")
	}
	b, prev, h := t.findBucket(index)
	if b == nil {
		return api.NewStructuredError(api.ErrCodeInvariant, "delete of absent page").
			WithContext("index", index)
	}
	if prev == nil {
		t.buckets[h] = b.next
	} else {
		prev.next = b.next
	}

	// Swap-remove from the dense order array so AtRank stays contiguous.
	pos := b.entry.pos
	last := len(t.order) - 1
	t.order[pos] = t.order[last]
	t.order[pos].pos = pos
	t.order = t.order[:last]

	b.next = nil
	t.dead = b
	return nil
}

func (t *Table) Find(index api.PageIndex) (*api.Residency, bool) {
	b, _, _ := t.findBucket(index)
	if b == nil {
		return nil, false
	}
	return &api.Residency{Index: b.entry.index, Payload: b.entry.payload, Slot: b.entry.pos}, true
}

// SetPayload updates the payload of a resident entry in place (used by
// NRU to flip reference/modified bits without a delete+insert cycle).
func (t *Table) SetPayload(index api.PageIndex, payload any) bool {
	b, _, _ := t.findBucket(index)
	if b == nil {
		return false
	}
	b.entry.payload = payload
	return true
}

func (t *Table) AtRank(rank int) (*api.Residency, bool) {
	if rank < 0 || rank >= len(t.order) {
		return nil, false
	}
	e := t.order[rank]
	return &api.Residency{Index: e.index, Payload: e.payload, Slot: e.pos}, true
}

func (t *Table) Len() int      { return len(t.order) }
func (t *Table) Capacity() int { return t.capacity }

var _ api.PageTable = (*Table)(nil)

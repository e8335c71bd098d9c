// Package allocator implements the watermark heaps behind the external
// (user-visible, paged) and internal (engine-private) allocation
// domains, grounded on original_source/allocate.c: jm_internal_malloc
// checks that every internal allocation's address falls outside
// jm_globals.memregion's range, and vice versa for external allocations.
// A Go idiomatic watermark bump allocator reproduces that ownership
// split without needing dlmalloc or an mspace.
//
// Author: momentics <momentics@gmail.com>
package allocator

import (
	"github.com/momentics/jumbomem/api"
)

// Heap is a bump allocator over [base, bound): Grow hands out
// sequentially increasing offsets and never reclaims, the same
// simplification original_source/allocate.c's mspace makes unnecessary
// in C (dlmalloc does real reuse there) but which is sufficient here —
// the engine's hot path is page residency, not fine-grained free/alloc
// churn (see DESIGN.md).
type Heap struct {
	base      api.Addr
	bound     api.Addr
	watermark api.Addr
	stats     api.HeapStats
}

// New builds a Heap spanning [base, base+extent).
func New(base api.Addr, extent uint64) *Heap {
	return &Heap{base: base, bound: base + api.Addr(extent), watermark: base}
}

func (h *Heap) Grow(n uintptr) (api.Addr, error) {
	if n == 0 {
		return h.watermark, nil
	}
	next := h.watermark + api.Addr(n)
	if next > h.bound {
		return 0, api.NewStructuredError(api.ErrCodeInvariant, "heap exhausted").
			WithContext("requested", uint64(n)).
			WithContext("available", uint64(h.bound-h.watermark))
	}
	ret := h.watermark
	h.watermark = next
	h.stats.Outstanding += uintptr(n)
	if h.stats.Outstanding > h.stats.HighWater {
		h.stats.HighWater = h.stats.Outstanding
	}
	return ret, nil
}

func (h *Heap) Base() api.Addr      { return h.base }
func (h *Heap) Watermark() api.Addr { return h.watermark }
func (h *Heap) Bound() api.Addr     { return h.bound }
func (h *Heap) Stats() api.HeapStats { return h.stats }

var _ api.Heap = (*Heap)(nil)

// Domain owns the external heap (grows into the managed region, per
// spec.md §4.6) and the internal heap (grows in a disjoint address
// range), and rejects any Grow request through the wrong door — the Go
// equivalent of allocate.c's "Internal buffer is within the external
// range" abort, raised as an error instead of a process-ending abort so
// a caller can decide how to escalate.
type Domain struct {
	External *Heap
	Internal *Heap
}

// NewDomain builds the allocator split for a region of the given base
// and extent, with the internal heap placed immediately above it so the
// two ranges can never overlap.
func NewDomain(regionBase api.Addr, regionExtent uint64, internalExtent uint64) *Domain {
	return &Domain{
		External: New(regionBase, regionExtent),
		Internal: New(regionBase+api.Addr(regionExtent), internalExtent),
	}
}

// CheckOwnership verifies addr falls within the heap the caller claims
// it came from, the runtime check jm_internal_malloc performs on every
// allocation.
func (d *Domain) CheckOwnership(addr api.Addr, internal bool) error {
	inExternal := addr >= d.External.Base() && addr < d.External.Bound()
	if internal && inExternal {
		return api.ErrAllocatorViolation
	}
	if internal && !(addr >= d.Internal.Base() && addr < d.Internal.Bound()) {
		return api.ErrAllocatorViolation
	}
	if !internal && !inExternal {
		return api.ErrAllocatorViolation
	}
	return nil
}

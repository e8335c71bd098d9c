// Package api defines the contracts shared between the paging engine's
// internal subsystems: address-space geometry, page residency, eviction
// policy, the peer wire transport, per-thread coordination state, and the
// allocator split. Concrete implementations live under internal/.
//
// Author: momentics <momentics@gmail.com>
package api

// PageIndex identifies a logical page within the managed region.
type PageIndex uint32

// Addr is a byte offset into the managed region, not a raw pointer.
type Addr uint64

// Prot mirrors the subset of mmap/mprotect protection bits the engine
// actually manipulates.
type Prot int

const (
	ProtNone  Prot = 0
	ProtRead  Prot = 1 << 0
	ProtWrite Prot = 1 << 1
)

func (p Prot) ReadWrite() bool { return p&ProtRead != 0 && p&ProtWrite != 0 }

// Distribution selects how logical pages map onto peers, per spec.md §3.
type Distribution int

const (
	DistRoundRobin Distribution = iota
	DistBlock
)

// Placement is the (holder, offset) pair a Distribution computes for a page.
type Placement struct {
	Holder int
	Offset uint64
}

// PrefetchMode selects §4.4's optional next-page prefetch strategy: NEXT
// always guesses the page immediately following the current fault, DELTA
// extrapolates the stride between the two most recent faults.
type PrefetchMode int

const (
	PrefetchNone PrefetchMode = iota
	PrefetchNext
	PrefetchDelta
)

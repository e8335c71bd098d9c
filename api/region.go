// File: api/region.go
// Author: momentics <momentics@gmail.com>
//
// Managed region contract (spec.md §4.1, §4.4). Region is the only door
// into the master's global address space: the explicit-interception
// resolution of the "resume the trapping instruction" design note (see
// SPEC_FULL.md, Open Question 1) routes every access through Access.

package api

// Region owns the master's reserved [Base, Base+Extent) virtual range and
// mediates every access to it through the fault-servicing pipeline.
type Region interface {
	Base() Addr
	Extent() uint64
	PageSize() int

	// Contains reports whether addr falls in [Base, Base+Extent).
	Contains(addr Addr) bool

	// Access is the fault handler's only entry point: it services a miss
	// or a protection upgrade as needed and returns a slice backed by the
	// resident page's real memory, ready for the caller to read or (if
	// forWrite) write directly.
	Access(addr Addr, forWrite bool) ([]byte, error)

	// Protect sets OS-level protections on a resident page's backing
	// memory; a no-op bookkeeping update on the non-Linux stub build.
	Protect(index PageIndex, prot Prot) error

	// PageBytes returns a mutable view of a resident page without going
	// through the fault path; callers must already hold the global lock
	// and know the page is resident (used by fetch/evict staging).
	PageBytes(index PageIndex) []byte

	Close() error
}

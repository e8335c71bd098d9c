// File: api/policy.go
// Author: momentics <momentics@gmail.com>
//
// Replacement policy contract (spec.md §4.3). Every policy shares one
// entry point: given the faulting page, decide protections for the new
// page and, if the cache is full, name a victim.

package api

// Decision is what a Policy returns for one fault.
type Decision struct {
	NewProt     Prot
	Victim      PageIndex
	HasVictim   bool
	VictimClean bool // true => evict may skip the network write
	Payload     any  // policy-specific payload to store for the admitted page
}

// Policy chooses eviction victims and new-page protections. Implementations
// mutate their own internal state (FIFO cursor, NRE history, NRU bits) to
// reflect that Fault's page is now resident and any victim is not.
type Policy interface {
	// Fault is called once per serviced page fault with the full set of
	// currently resident page indices (for victim selection) and the
	// faulting page index.
	Fault(table PageTable, faulting PageIndex) (Decision, error)

	// Touch is called when an already-resident page is touched again
	// (NRU reference-bit tracking; a write to a read-only resident page
	// triggers a protection upgrade through this path). Returns the
	// protections that should now apply.
	Touch(table PageTable, index PageIndex, write bool) (Prot, error)

	// SupportsPrefetch reports whether pages admitted by this policy are
	// ever non-writable, which is the precondition for prefetching
	// (spec.md §4.3, final paragraph).
	SupportsPrefetch() bool

	// Name identifies the policy for logging and configuration.
	Name() string
}

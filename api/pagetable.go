// File: api/pagetable.go
// Author: momentics <momentics@gmail.com>
//
// Residency map contract (spec.md §4.2). A PageTable owns no page bytes;
// it only tracks which logical pages are resident and where their policy
// payload lives.

package api

// Residency is the record a PageTable keeps for one resident page.
type Residency struct {
	Index   PageIndex
	Payload any // policy-specific: *NRUBits for NRU, nil for FIFO/Random/NRE
	Slot    int // the entry's current AtRank position; Delete can move another entry into it, so it is not a stable identity
}

// PageTable is a fixed-capacity hash-indexed residency map, chained on
// collision, with reuse-on-next-insert slot semantics (spec.md §4.2).
type PageTable interface {
	Insert(index PageIndex, payload any) error
	Delete(index PageIndex) error
	Find(index PageIndex) (*Residency, bool)
	// SetPayload updates a resident entry's payload in place, without a
	// delete+insert cycle (NRU reference/modified bit flips).
	SetPayload(index PageIndex, payload any) bool
	AtRank(rank int) (*Residency, bool)
	Len() int
	Capacity() int
}

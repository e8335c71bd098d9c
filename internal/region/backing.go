// Package region owns the raw byte storage backing resident pages: a
// fixed number of page-sized slots, reserved once at startup, with
// OS-level protection enforcement on Linux and a metadata-only fallback
// elsewhere — the same _linux.go/_stub.go split the teacher uses for
// affinity and buffer pooling (spec.md §4.1, SPEC_FULL.md Open Question 1).
//
// Author: momentics <momentics@gmail.com>
package region

import (
	"errors"

	"github.com/momentics/jumbomem/api"
)

// ErrMlockUnsupported is returned by LockMemory on backings with no
// single real OS mapping to pin (the non-Linux stub, whose slots are
// ordinary per-slot Go slices).
var ErrMlockUnsupported = errors.New("region: mlock not supported on this backing")

// Backing reserves and protects the slot arena that holds resident page
// bytes. It knows nothing about which logical page occupies which slot;
// that mapping is the page table's job.
type Backing interface {
	// Slot returns a mutable view of slot i's pageSize bytes.
	Slot(i int) []byte
	// Protect applies prot to slot i's backing memory. On the stub build
	// this only records the requested protection for Access to consult;
	// on Linux it calls mprotect on the slot's real mapping.
	Protect(i int, prot api.Prot) error
	// ProtOf reports the protection most recently applied to slot i.
	ProtOf(i int) api.Prot
	// LockMemory requests the OS pin the arena in RAM (spec.md §6 MLOCK),
	// mirroring slaves_mpi.c's jm_mlock call on its slave buffer.
	LockMemory() error
	Close() error
}

// New allocates a Backing with the given number of pageSize-byte slots.
func New(slots, pageSize int) (Backing, error) {
	return newBacking(slots, pageSize)
}

// File: api/threadstate.go
// Author: momentics <momentics@gmail.com>
//
// Per-thread coordination contract (spec.md §3 "Per-thread state", §4.4
// step 4 "Freeze peer threads").

package api

// ThreadRecord mirrors spec.md §3's per-thread state tuple.
type ThreadRecord struct {
	TransportID   int
	OSThreadID    int
	BlockedOnLock bool
	LockDepth     int
	CancelCount   int
	Internal      bool
	Freeable      bool
}

// ThreadCoordinator owns the global lock and the live thread list, and
// drives the freeze-wave protocol.
type ThreadCoordinator interface {
	// Register adds the calling thread on first touch of any core API.
	Register(internal bool) *ThreadRecord

	// Lock/Unlock acquire and release the process-wide lock. They are
	// not reentrant: a second Lock by the holder blocks.
	Lock()
	Unlock()

	// Freeze is called with the lock held and checks every non-internal
	// thread for the current fault. Returns the threads that did not
	// count as frozen.
	Freeze() (timedOut []*ThreadRecord)

	// Reap removes dead threads discovered during a freeze wave.
	Reap()

	Len() int
}

// File: internal/intercept/spawn.go
// Author: momentics <momentics@gmail.com>
//
// Thread-creation interception, grounded on funcoverrides.c's
// pthread_create override: every thread the caller's program spawns is
// wrapped so it registers with the coordinator (and so Freeze can find
// it) before running the caller's function. Go has no LD_PRELOAD hook
// to retrofit onto pre-existing goroutines, so the wrapping happens at
// the one place a new thread of control is actually created: the call
// to Spawn itself, in place of a raw "go func(){}()".

package intercept

import "github.com/momentics/jumbomem/api"

// ThreadCoordinator is the subset of threadstate.Coordinator that Spawn
// needs; kept narrow here to avoid an import cycle with threadstate.
type ThreadCoordinator interface {
	Register(internal bool) *api.ThreadRecord
	Reap()
}

// Spawn starts fn in a new goroutine after registering it with coord,
// mirroring pthread_create's bookkeeping of every thread it creates so
// the fault handler can later freeze it. internal marks threads the
// engine itself spawns (heartbeat, prefetch workers) so Freeze skips
// them, the same distinction JM_INTERNAL_INVOCATION draws around
// JumboMem's own pthread_create calls.
func Spawn(coord ThreadCoordinator, internal bool, fn func(rec *api.ThreadRecord)) *api.ThreadRecord {
	rec := coord.Register(internal)
	go func() {
		defer coord.Reap()
		fn(rec)
	}()
	return rec
}

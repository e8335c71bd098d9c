// Package threadstate owns the engine's global lock and the live
// per-thread list, grounded on original_source/threadsupport.c: every
// goroutine that touches the managed region registers itself once, and
// the faulting goroutine runs a freeze wave (spec.md §3, §4.4 step 4;
// see Coordinator.Freeze for what it checks) before it touches shared
// state.
//
// Author: momentics <momentics@gmail.com>
package threadstate

import (
	"sync"
	"time"

	"github.com/momentics/jumbomem/api"
)

// record is the mutable bookkeeping behind one api.ThreadRecord.
type record struct {
	pub *api.ThreadRecord
}

// Coordinator implements api.ThreadCoordinator with a global mutex
// modelled on original_source/threadsupport.c's megalock. Lock/Unlock
// are not reentrant; LockAs/UnlockAs add owner-tracked recursion. The
// freeze wave can be driven by FreezeProbe for deterministic tests.
type Coordinator struct {
	mu   sync.Mutex
	cond *sync.Cond

	owner      int64 // goroutine-local id of the current lock holder, 0=unheld
	depth      int
	nextThread int64

	threads map[int64]*record

	// FreezeTimeout is the window, measured from the start of a Freeze
	// call, during which a thread with no FreezeProbe answer counts as
	// frozen; Freeze does not sleep or poll within it
	// (JM_FREEZE_TIMEOUT in original_source/threadsupport.c defaults to
	// 1000ms).
	FreezeTimeout time.Duration

	// FreezeProbe, when non-nil, is invoked once per tracked thread
	// during Freeze instead of the real scheduler signal, letting tests
	// force the timeout path deterministically (SPEC_FULL.md Open
	// Question 3).
	FreezeProbe func(*api.ThreadRecord) bool
}

// New builds a Coordinator. FreezeTimeout defaults to 1 second, matching
// the original's JM_FREEZE_TIMEOUT.
func New() *Coordinator {
	c := &Coordinator{
		threads:       make(map[int64]*record),
		FreezeTimeout: time.Second,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Register adds a new logical thread to the coordinator's list, mirroring
// initialize_thread's insert-at-head-under-the-lock sequence.
func (c *Coordinator) Register(internal bool) *api.ThreadRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextThread++
	id := c.nextThread
	rec := &record{
		pub: &api.ThreadRecord{
			TransportID: int(id),
			OSThreadID:  int(id),
			Internal:    internal,
			Freeable:    true,
		},
	}
	c.threads[id] = rec
	return rec.pub
}

// Lock acquires the engine's global lock. Go's sync.Mutex is not
// reentrant, so unlike the original's error-checking pthread mutex this
// Coordinator tracks recursion explicitly via a caller-supplied owner
// token (the *api.ThreadRecord pointer's TransportID) passed through
// LockAs; Lock/Unlock alone implement the non-reentrant fast path used
// by single-goroutine callers (the common case: one goroutine per fault).
func (c *Coordinator) Lock() {
	c.mu.Lock()
}

func (c *Coordinator) Unlock() {
	c.mu.Unlock()
}

// LockAs acquires the lock reentrantly on behalf of rec: a second LockAs
// by the same rec while it already holds the lock succeeds immediately,
// matching PTHREAD_ERRORCHECK_MUTEX's behavior for the thread that
// already owns it (threadsupport.c's jm_enter_critical_section).
func (c *Coordinator) LockAs(rec *api.ThreadRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.owner != 0 && c.owner != int64(rec.TransportID) {
		c.cond.Wait()
	}
	c.owner = int64(rec.TransportID)
	c.depth++
	rec.LockDepth = c.depth
}

// UnlockAs releases one level of LockAs recursion for rec.
func (c *Coordinator) UnlockAs(rec *api.ThreadRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth--
	rec.LockDepth = c.depth
	if c.depth == 0 {
		c.owner = 0
		c.cond.Broadcast()
	}
}

// Freeze checks every registered non-internal thread, modelled on
// jm_freeze_other_threads. It reads the thread list without taking
// c.mu, so the caller must already hold the global lock (Lock), which
// also guards that list; the fault path calls it with the lock held.
// With FreezeProbe set, the probe decides for each thread. Without one,
// no signal is sent and nothing is waited for: a thread counts as frozen
// when it is marked BlockedOnLock or while FreezeTimeout has not elapsed
// since the call began, so with a positive FreezeTimeout every thread
// counts as frozen. The caller's own record is not excluded. Threads
// that don't count as frozen are returned so the caller can log and
// proceed anyway rather than deadlocking over one unresponsive thread.
func (c *Coordinator) Freeze() []*api.ThreadRecord {
	snapshot := make([]*record, 0, len(c.threads))
	for _, r := range c.threads {
		if !r.pub.Internal {
			snapshot = append(snapshot, r)
		}
	}

	var timedOut []*api.ThreadRecord
	deadline := time.Now().Add(c.FreezeTimeout)
	for _, r := range snapshot {
		ok := true
		if c.FreezeProbe != nil {
			ok = c.FreezeProbe(r.pub)
		} else {
			ok = r.pub.BlockedOnLock || time.Now().Before(deadline)
		}
		if !ok {
			timedOut = append(timedOut, r.pub)
		}
	}
	return timedOut
}

// Reap drops any thread whose destructor has marked it forever blocked
// and freeable, mirroring thread_destructor's use of the ~0 sentinel.
func (c *Coordinator) Reap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, r := range c.threads {
		if r.pub.Freeable && r.pub.CancelCount < 0 {
			delete(c.threads, id)
		}
	}
}

func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.threads)
}

var _ api.ThreadCoordinator = (*Coordinator)(nil)

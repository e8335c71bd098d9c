// Package fault implements the master's page-fault servicing pipeline
// (spec.md §4.4), grounded on original_source/faulthandler.c: check
// residency first (the fast "minor fault" path), then on a miss freeze
// peer threads, ask the replacement policy for a victim, stage its
// eviction, fetch the faulting page, and admit it with the policy's
// chosen protections. Engine is the concrete api.Region: Access is the
// fault handler's sole entry point (SPEC_FULL.md Open Question 1).
//
// The backing arena is sized one slot larger than the resident-page
// capacity so an asynchronous eviction (faulthandler.c's evict_begin
// with async_evict set) always has a spare slot to hand the incoming
// page while the victim's bytes are still in flight to their peer —
// the original achieves the same decoupling via a page-granular virtual
// address space; Engine's fixed slot pool needs the spare explicitly.
//
// Author: momentics <momentics@gmail.com>
package fault

import (
	"fmt"
	"log"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/pagetable"
	"github.com/momentics/jumbomem/internal/region"
	"github.com/momentics/jumbomem/internal/threadstate"
)

// pendingEvict is a victim's async, not-yet-memcpy'd eviction: the slot
// it occupied cannot be reused until the write completes.
type pendingEvict struct {
	slot   int
	handle api.AsyncHandle
}

// pendingPrefetch is the single outstanding speculative fetch slot
// (spec.md §3's "three async operation slots": fetch, evict, prefetch).
// Only one prefetch is ever in flight; a fault that doesn't match it
// discards it before starting its own fetch.
type pendingPrefetch struct {
	page   api.PageIndex
	slot   int
	handle api.AsyncHandle
}

// Engine wires the page table, replacement policy, peer transport, slot
// backing, and thread coordinator into one api.Region implementation.
type Engine struct {
	base     api.Addr
	extent   uint64
	pageSize int

	table       *pagetable.Table
	policy      api.Policy
	transport   api.Transport
	backing     region.Backing
	coordinator *threadstate.Coordinator

	asyncEvict bool
	memcpy     bool

	slotOf       map[api.PageIndex]int
	freeSlots    []int
	pending      *pendingEvict
	strayHandles []api.AsyncHandle

	prefetchMode api.PrefetchMode
	prefetch     *pendingPrefetch
	lastFault    api.PageIndex
	hasLastFault bool

	faults         int
	goodPrefetches int
	pagesReceived  int
}

// Config bundles the knobs Engine needs beyond its collaborators, read
// once at construction from internal/config.Store (spec.md §6
// ASYNCEVICT and MEMCPY).
type Config struct {
	Base       api.Addr
	Extent     uint64
	PageSize   int
	LocalPages int
	AsyncEvict bool
	Memcpy     bool
	Prefetch   api.PrefetchMode
	// Mlock mirrors MLOCK (spec.md §6): request the backing arena be
	// pinned in RAM. A failure is logged, not fatal — jm_mlock's own
	// failure path in slaves_mpi.c is likewise advisory.
	Mlock bool
}

// New builds an Engine. capacity backing slots are reserved: LocalPages
// plus one spare for async eviction handoff.
func New(cfg Config, table *pagetable.Table, policy api.Policy, transport api.Transport, coordinator *threadstate.Coordinator) (*Engine, error) {
	backing, err := region.New(cfg.LocalPages+1, cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fault: allocating backing arena: %w", err)
	}
	if cfg.Mlock {
		if err := backing.LockMemory(); err != nil {
			log.Printf("[fault] mlock failed, continuing unlocked: %v", err)
		}
	}
	e := &Engine{
		base:         cfg.Base,
		extent:       cfg.Extent,
		pageSize:     cfg.PageSize,
		table:        table,
		policy:       policy,
		transport:    transport,
		backing:      backing,
		coordinator:  coordinator,
		asyncEvict:   cfg.AsyncEvict,
		memcpy:       cfg.Memcpy,
		prefetchMode: cfg.Prefetch,
		slotOf:       make(map[api.PageIndex]int, cfg.LocalPages),
	}
	for i := 0; i < cfg.LocalPages+1; i++ {
		e.freeSlots = append(e.freeSlots, i)
	}
	return e, nil
}

func (e *Engine) Base() api.Addr  { return e.base }
func (e *Engine) Extent() uint64  { return e.extent }
func (e *Engine) PageSize() int   { return e.pageSize }

func (e *Engine) Contains(addr api.Addr) bool {
	return addr >= e.base && addr < e.base+api.Addr(e.extent)
}

func (e *Engine) pageOf(addr api.Addr) api.PageIndex {
	return api.PageIndex(uint64(addr-e.base) / uint64(e.pageSize))
}

func (e *Engine) addrOfPage(p api.PageIndex) api.Addr {
	return e.base + api.Addr(uint64(p)*uint64(e.pageSize))
}

// Access is the fault handler's only entry point (spec.md §4.4).
func (e *Engine) Access(addr api.Addr, forWrite bool) ([]byte, error) {
	if !e.Contains(addr) {
		return nil, api.ErrOutOfRegion
	}
	e.coordinator.Lock()
	defer e.coordinator.Unlock()

	page := e.pageOf(addr)
	rel := int(uint64(addr-e.base) % uint64(e.pageSize))

	if _, ok := e.table.Find(page); ok {
		return e.touch(page, rel, forWrite)
	}
	return e.fault(page, rel)
}

// touch is the minor-fault / protection-upgrade fast path.
func (e *Engine) touch(page api.PageIndex, rel int, forWrite bool) ([]byte, error) {
	prot, err := e.policy.Touch(e.table, page, forWrite)
	if err != nil {
		return nil, err
	}
	slot := e.slotOf[page]
	if e.backing.ProtOf(slot) != prot {
		if err := e.backing.Protect(slot, prot); err != nil {
			return nil, err
		}
	}
	return e.backing.Slot(slot)[rel:], nil
}

// fault is the major-fault path: freeze peers, pick a victim, evict it,
// fetch the faulting page, admit it, then kick off the next speculative
// prefetch (spec.md §4.4 step 6): a prefetch matching this fault is
// consumed instead of a fresh fetch; a mismatched one is discarded.
func (e *Engine) fault(page api.PageIndex, rel int) ([]byte, error) {
	e.faults++
	if err := e.completePendingEvict(); err != nil {
		return nil, err
	}
	if timedOut := e.coordinator.Freeze(); len(timedOut) > 0 {
		log.Printf("[fault] %d peer thread(s) did not freeze before fault on page %d", len(timedOut), page)
	}

	decision, err := e.policy.Fault(e.table, page)
	if err != nil {
		return nil, err
	}

	slot, err := e.resolveFetch(page, decision)
	if err != nil {
		return nil, err
	}

	if err := e.backing.Protect(slot, decision.NewProt); err != nil {
		return nil, err
	}
	if err := e.table.Insert(page, decision.Payload); err != nil {
		return nil, err
	}
	e.slotOf[page] = slot

	prevFault, hadPrev := e.lastFault, e.hasLastFault
	e.lastFault, e.hasLastFault = page, true
	e.advancePrefetch(page, prevFault, hadPrev)

	return e.backing.Slot(slot)[rel:], nil
}

// resolveFetch ends the outstanding prefetch slot if it targets page,
// otherwise discards it, evicts decision's victim, and performs a
// synchronous fetch. It returns the backing slot now holding page.
func (e *Engine) resolveFetch(page api.PageIndex, decision api.Decision) (int, error) {
	if e.prefetch != nil && e.prefetch.page == page {
		pf := e.prefetch
		e.prefetch = nil
		if err := pf.handle.Wait(); err != nil {
			e.freeSlots = append(e.freeSlots, pf.slot)
			return 0, err
		}
		e.goodPrefetches++
		e.pagesReceived++
		if decision.HasVictim {
			if err := e.evictVictim(decision.Victim, decision.VictimClean); err != nil {
				return 0, err
			}
		}
		return pf.slot, nil
	}

	e.discardPrefetch()
	if decision.HasVictim {
		if err := e.evictVictim(decision.Victim, decision.VictimClean); err != nil {
			return 0, err
		}
	}
	slot, err := e.popFreeSlot()
	if err != nil {
		return 0, err
	}
	handle, err := e.transport.FetchBegin(e.addrOfPage(page), e.backing.Slot(slot))
	if err != nil {
		return 0, err
	}
	if err := handle.Wait(); err != nil {
		return 0, err
	}
	e.pagesReceived++
	return slot, nil
}

// discardPrefetch releases a live prefetch that no longer matches the
// current fault, draining its transfer so the slot is safe to reuse.
func (e *Engine) discardPrefetch() {
	if e.prefetch == nil {
		return
	}
	pf := e.prefetch
	e.prefetch = nil
	if err := pf.handle.Wait(); err != nil {
		log.Printf("[fault] error draining discarded prefetch of page %d: %v", pf.page, err)
	}
	e.freeSlots = append(e.freeSlots, pf.slot)
}

// advancePrefetch issues a speculative fetch for the NEXT or DELTA
// candidate page past current, per spec.md §4.4's final line, provided
// the active policy tracks residency precisely enough to make "already
// resident" a meaningful check (api.Policy.SupportsPrefetch).
func (e *Engine) advancePrefetch(current, prev api.PageIndex, hadPrev bool) {
	if e.prefetchMode == api.PrefetchNone || !e.policy.SupportsPrefetch() {
		return
	}
	candidate, ok := e.prefetchCandidate(current, prev, hadPrev)
	if !ok {
		return
	}
	if _, resident := e.table.Find(candidate); resident {
		return
	}
	slot, err := e.popFreeSlot()
	if err != nil {
		return
	}
	handle, err := e.transport.FetchBegin(e.addrOfPage(candidate), e.backing.Slot(slot))
	if err != nil {
		e.freeSlots = append(e.freeSlots, slot)
		return
	}
	e.prefetch = &pendingPrefetch{page: candidate, slot: slot, handle: handle}
}

// prefetchCandidate computes the NEXT or DELTA page per §4.4 and
// discards it if it falls outside the managed region.
func (e *Engine) prefetchCandidate(current, prev api.PageIndex, hadPrev bool) (api.PageIndex, bool) {
	var candidate api.PageIndex
	switch e.prefetchMode {
	case api.PrefetchNext:
		candidate = current + 1
	case api.PrefetchDelta:
		if !hadPrev {
			candidate = current + 1
		} else {
			delta := int64(current) - int64(prev)
			c := int64(current) + delta
			if c < 0 {
				return 0, false
			}
			candidate = api.PageIndex(c)
		}
	default:
		return 0, false
	}
	if uint64(candidate)*uint64(e.pageSize) >= e.extent {
		return 0, false
	}
	return candidate, true
}

func (e *Engine) popFreeSlot() (int, error) {
	if len(e.freeSlots) == 0 {
		return 0, api.ErrRegionExhausted
	}
	n := len(e.freeSlots) - 1
	slot := e.freeSlots[n]
	e.freeSlots = e.freeSlots[:n]
	return slot, nil
}

// evictVictim removes victim from residency and, if dirty, writes it
// back — synchronously if ASYNCEVICT is off, otherwise staged so its
// slot (or a copy of its bytes, under MEMCPY) frees up without blocking
// this fault (faulthandler.c's evict_begin/evict_end split).
func (e *Engine) evictVictim(victim api.PageIndex, clean bool) error {
	slot, ok := e.slotOf[victim]
	if !ok {
		return api.NewStructuredError(api.ErrCodeInvariant, "victim has no backing slot").
			WithContext("page", victim)
	}
	delete(e.slotOf, victim)
	if err := e.table.Delete(victim); err != nil {
		return err
	}
	if clean {
		e.freeSlots = append(e.freeSlots, slot)
		return nil
	}

	addr := e.addrOfPage(victim)
	if !e.asyncEvict {
		handle, err := e.transport.EvictBegin(addr, e.backing.Slot(slot))
		if err != nil {
			return err
		}
		if err := handle.Wait(); err != nil {
			return err
		}
		e.freeSlots = append(e.freeSlots, slot)
		return nil
	}

	src := e.backing.Slot(slot)
	if e.memcpy {
		cp := make([]byte, len(src))
		copy(cp, src)
		src = cp
		e.freeSlots = append(e.freeSlots, slot)
	} else if err := e.backing.Protect(slot, api.ProtRead); err != nil {
		return err
	}

	handle, err := e.transport.EvictBegin(addr, src)
	if err != nil {
		return err
	}
	if e.memcpy {
		e.strayHandles = append(e.strayHandles, handle)
	} else {
		e.pending = &pendingEvict{slot: slot, handle: handle}
	}
	return nil
}

func (e *Engine) completePendingEvict() error {
	if e.pending == nil {
		return nil
	}
	p := e.pending
	e.pending = nil
	if err := p.handle.Wait(); err != nil {
		return err
	}
	e.freeSlots = append(e.freeSlots, p.slot)
	return nil
}

// Protect applies prot to a resident page's backing slot directly,
// bypassing the fault path (api.Region's protection-change entry point).
func (e *Engine) Protect(index api.PageIndex, prot api.Prot) error {
	slot, ok := e.slotOf[index]
	if !ok {
		return api.ErrNoResident
	}
	return e.backing.Protect(slot, prot)
}

// PageBytes returns a resident page's full backing bytes without going
// through Access; callers must already hold the lock.
func (e *Engine) PageBytes(index api.PageIndex) []byte {
	slot, ok := e.slotOf[index]
	if !ok {
		return nil
	}
	return e.backing.Slot(slot)
}

// Close drains any in-flight async evictions and releases the backing arena.
func (e *Engine) Close() error {
	if err := e.completePendingEvict(); err != nil {
		log.Printf("[fault] error draining pending eviction on close: %v", err)
	}
	if e.prefetch != nil {
		if err := e.prefetch.handle.Wait(); err != nil {
			log.Printf("[fault] error draining outstanding prefetch on close: %v", err)
		}
		e.prefetch = nil
	}
	for _, h := range e.strayHandles {
		if err := h.Wait(); err != nil {
			log.Printf("[fault] error draining stray eviction on close: %v", err)
		}
	}
	return e.backing.Close()
}

// Faults reports how many major faults Engine has serviced, for the
// heartbeat reporter.
func (e *Engine) Faults() int { return e.faults }

// GoodPrefetches reports how many faults were satisfied by a matching
// outstanding prefetch (spec.md §8 scenario 4's good_prefetches counter).
func (e *Engine) GoodPrefetches() int { return e.goodPrefetches }

// PagesReceived reports how many pages crossed the wire via fetch or
// prefetch combined (spec.md §8 scenario 4's pages_received counter).
func (e *Engine) PagesReceived() int { return e.pagesReceived }

var _ api.Region = (*Engine)(nil)

// File: internal/pagereplace/nru.go
// Author: momentics <momentics@gmail.com>
//
// Not-Recently-Used eviction (spec.md §4.3), grounded on
// original_source/pagereplace_nru.c: every resident page carries a
// {referenced, modified} pair, classifying it into one of four classes
// (ref=0,mod=0 evicted first, up to ref=1,mod=1 evicted last),
// and eviction draws uniformly from the lowest-numbered nonempty class.
// Reference bits are cleared on a periodic sweep, checked lazily on each
// fault rather than via a timer goroutine, mirroring the original's
// maybe_clear_reference_bits.
//
// The original maintains a two-tier bucket-sorted structure for O(1)
// class membership; this implementation classifies by scanning resident
// pages on each fault instead (see DESIGN.md) — local_pages is modest
// enough that the O(n) scan costs nothing a network-bound fault handler
// would notice, and it avoids reimplementing a second indexing structure
// alongside the shared page table.

package pagereplace

import (
	"math/rand"
	"time"

	"github.com/momentics/jumbomem/api"
)

// NRUBits is the payload NRU stores per resident page in the shared page table.
type NRUBits struct {
	Referenced bool
	Modified   bool
}

func (b NRUBits) class() int {
	c := 0
	if b.Referenced {
		c += 2
	}
	if b.Modified {
		c += 1
	}
	return c
}

// NRU implements api.Policy with four-class reference/modified eviction.
type NRU struct {
	capacity  int
	interval  int // milliseconds between reference-bit sweeps (NRU_INTERVAL)
	admitRW   bool
	rng       *rand.Rand
	lastSweep time.Time
}

// NewNRU builds an NRU policy. interval is the number of milliseconds
// between reference-bit clearing sweeps (NRU_INTERVAL, spec.md §6: "ms");
// admitRW mirrors NRU_RW, admitting new pages read/write-and-modified
// instead of read-only.
func NewNRU(capacity, interval int, admitRW bool) *NRU {
	if interval < 1 {
		interval = 1
	}
	return &NRU{
		capacity:  capacity,
		interval:  interval,
		admitRW:   admitRW,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		lastSweep: time.Now(),
	}
}

func bitsOf(res *api.Residency) NRUBits {
	if res.Payload == nil {
		return NRUBits{}
	}
	b, ok := res.Payload.(NRUBits)
	if !ok {
		return NRUBits{}
	}
	return b
}

// maybeSweep clears every resident page's referenced bit once the
// interval has elapsed in wall-clock time, checked lazily on each fault
// exactly as maybe_clear_reference_bits compares "now - prev_rbit_clear_time"
// against nru_interval_ms rather than counting faults.
func (n *NRU) maybeSweep(table api.PageTable) {
	if time.Since(n.lastSweep) < time.Duration(n.interval)*time.Millisecond {
		return
	}
	n.lastSweep = time.Now()
	for rank := 0; rank < table.Len(); rank++ {
		res, ok := table.AtRank(rank)
		if !ok {
			continue
		}
		bits := bitsOf(res)
		if bits.Referenced {
			bits.Referenced = false
			table.SetPayload(res.Index, bits)
		}
	}
}

// pickVictim scans the resident set once, tracking the lowest nonempty
// class's membership, then draws uniformly from it.
func (n *NRU) pickVictim(table api.PageTable) (api.PageIndex, bool, error) {
	resident := table.Len()
	if resident == 0 {
		return 0, false, api.ErrNoResident
	}
	lowest := -1
	var members []api.PageIndex
	var memberClean []bool
	for rank := 0; rank < resident; rank++ {
		res, ok := table.AtRank(rank)
		if !ok {
			continue
		}
		bits := bitsOf(res)
		c := bits.class()
		switch {
		case lowest == -1 || c < lowest:
			lowest = c
			members = members[:0]
			memberClean = memberClean[:0]
			members = append(members, res.Index)
			memberClean = append(memberClean, !bits.Modified)
		case c == lowest:
			members = append(members, res.Index)
			memberClean = append(memberClean, !bits.Modified)
		}
	}
	if len(members) == 0 {
		return 0, false, api.ErrNoResident
	}
	i := n.rng.Intn(len(members))
	return members[i], memberClean[i], nil
}

func (n *NRU) Fault(table api.PageTable, faulting api.PageIndex) (api.Decision, error) {
	n.maybeSweep(table)

	d := api.Decision{}
	if n.admitRW {
		d.NewProt = api.ProtRead | api.ProtWrite
	} else {
		d.NewProt = api.ProtRead
	}
	d.Payload = NRUBits{Referenced: true, Modified: n.admitRW}

	if table.Len() >= n.capacity {
		victim, clean, err := n.pickVictim(table)
		if err != nil {
			return d, err
		}
		d.HasVictim = true
		d.Victim = victim
		d.VictimClean = clean
	}
	return d, nil
}

func (n *NRU) Touch(table api.PageTable, index api.PageIndex, write bool) (api.Prot, error) {
	bits := NRUBits{Referenced: true, Modified: write}
	if res, ok := table.Find(index); ok {
		prior := bitsOf(res)
		if prior.Modified {
			bits.Modified = true
		}
	}
	table.SetPayload(index, bits)
	if write {
		return api.ProtRead | api.ProtWrite, nil
	}
	return api.ProtRead, nil
}

func (n *NRU) SupportsPrefetch() bool { return !n.admitRW }
func (n *NRU) Name() string           { return "nru" }

var _ api.Policy = (*NRU)(nil)

// File: internal/pagereplace/fifo.go
// Author: momentics <momentics@gmail.com>
//
// FIFO eviction (spec.md §4.3), grounded on original_source/pagereplace_fifo.c:
// admitted pages queue up in arrival order behind a single cursor; the
// oldest resident page is always the next victim once the cache is full.
// Admitted pages are always mapped read/write, so FIFO never prefetches.

package pagereplace

import (
	"github.com/eapache/queue"

	"github.com/momentics/jumbomem/api"
)

// FIFO implements api.Policy using arrival order as the sole eviction key.
type FIFO struct {
	capacity int
	order    *queue.Queue
}

// NewFIFO builds a FIFO policy for a cache of the given capacity.
func NewFIFO(capacity int) *FIFO {
	return &FIFO{capacity: capacity, order: queue.New()}
}

func (f *FIFO) Fault(table api.PageTable, faulting api.PageIndex) (api.Decision, error) {
	d := api.Decision{NewProt: api.ProtRead | api.ProtWrite}
	if table.Len() >= f.capacity {
		if f.order.Length() == 0 {
			return d, api.ErrNoResident
		}
		victim := f.order.Remove().(api.PageIndex)
		d.HasVictim = true
		d.Victim = victim
		d.VictimClean = false // FIFO victims are always dirty, per the original
	}
	f.order.Add(faulting)
	return d, nil
}

func (f *FIFO) Touch(table api.PageTable, index api.PageIndex, write bool) (api.Prot, error) {
	return api.ProtRead | api.ProtWrite, nil
}

func (f *FIFO) SupportsPrefetch() bool { return false }
func (f *FIFO) Name() string           { return "fifo" }

var _ api.Policy = (*FIFO)(nil)

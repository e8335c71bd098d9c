// File: internal/pagereplace/nre.go
// Author: momentics <momentics@gmail.com>
//
// Not-Recently-Evicted eviction (spec.md §4.3), grounded on
// original_source/pagereplace_nre.c: like Random, but a victim is also
// rejected if it appears in a bounded history of the last K evicted pages,
// retried up to a configured budget before falling back to whatever
// Random would have picked. Unlike the original's rank-indexed history
// ring, spec.md §4.3 calls for the history to hold actual page indices,
// which is what NRE.history does here — a deliberate deviation recorded
// in DESIGN.md.

package pagereplace

import (
	"math/rand"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/jumbomem/api"
)

// NRE implements api.Policy, extending Random with eviction-history avoidance.
type NRE struct {
	capacity     int
	historyLen   int
	maxRetries   int
	rng          *rand.Rand
	history      *queue.Queue
	lastAdmitted api.PageIndex
	hasAdmitted  bool
}

// NewNRE builds an NRE policy. historyLen bounds how many recently evicted
// pages are remembered; maxRetries bounds how many draws are attempted
// before giving up and accepting a repeat.
func NewNRE(capacity, historyLen, maxRetries int) *NRE {
	if historyLen < 1 {
		historyLen = 1
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &NRE{
		capacity:   capacity,
		historyLen: historyLen,
		maxRetries: maxRetries,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		history:    queue.New(),
	}
}

func (n *NRE) inHistory(idx api.PageIndex) bool {
	for i := 0; i < n.history.Length(); i++ {
		if n.history.Get(i).(api.PageIndex) == idx {
			return true
		}
	}
	return false
}

func (n *NRE) remember(idx api.PageIndex) {
	n.history.Add(idx)
	for n.history.Length() > n.historyLen {
		n.history.Remove()
	}
}

func (n *NRE) pickVictim(table api.PageTable) (api.PageIndex, error) {
	resident := table.Len()
	if resident == 0 {
		return 0, api.ErrNoResident
	}
	if resident == 1 {
		res, _ := table.AtRank(0)
		return res.Index, nil
	}

	var fallback api.PageIndex
	haveFallback := false
	for tries := 0; tries < n.maxRetries; tries++ {
		res, ok := table.AtRank(n.rng.Intn(resident))
		if !ok {
			continue
		}
		if n.hasAdmitted && res.Index == n.lastAdmitted {
			continue
		}
		if !haveFallback {
			fallback = res.Index
			haveFallback = true
		}
		if !n.inHistory(res.Index) {
			return res.Index, nil
		}
	}
	if haveFallback {
		return fallback, nil
	}
	res, _ := table.AtRank(n.rng.Intn(resident))
	return res.Index, nil
}

func (n *NRE) Fault(table api.PageTable, faulting api.PageIndex) (api.Decision, error) {
	d := api.Decision{NewProt: api.ProtRead | api.ProtWrite}
	if table.Len() >= n.capacity {
		victim, err := n.pickVictim(table)
		if err != nil {
			return d, err
		}
		d.HasVictim = true
		d.Victim = victim
		d.VictimClean = false
		n.remember(victim)
	}
	n.lastAdmitted = faulting
	n.hasAdmitted = true
	return d, nil
}

func (n *NRE) Touch(table api.PageTable, index api.PageIndex, write bool) (api.Prot, error) {
	return api.ProtRead | api.ProtWrite, nil
}

func (n *NRE) SupportsPrefetch() bool { return false }
func (n *NRE) Name() string           { return "nre" }

var _ api.Policy = (*NRE)(nil)

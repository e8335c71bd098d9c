// File: internal/pagereplace/random.go
// Author: momentics <momentics@gmail.com>
//
// Random eviction (spec.md §4.3), grounded on
// original_source/pagereplace_random.c: victim is drawn uniformly from the
// resident set, retried if it names the page most recently admitted so a
// page can never be evicted the instant it arrives.

package pagereplace

import (
	"math/rand"
	"time"

	"github.com/momentics/jumbomem/api"
)

// Random implements api.Policy with uniform victim selection.
type Random struct {
	capacity     int
	rng          *rand.Rand
	lastAdmitted api.PageIndex
	hasAdmitted  bool
}

// NewRandom builds a Random policy for a cache of the given capacity.
func NewRandom(capacity int) *Random {
	return &Random{
		capacity: capacity,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Random) pickVictim(table api.PageTable) (api.PageIndex, error) {
	n := table.Len()
	if n == 0 {
		return 0, api.ErrNoResident
	}
	if n == 1 {
		res, _ := table.AtRank(0)
		return res.Index, nil
	}
	for tries := 0; tries < n*4+8; tries++ {
		res, ok := table.AtRank(r.rng.Intn(n))
		if !ok {
			continue
		}
		if r.hasAdmitted && res.Index == r.lastAdmitted {
			continue
		}
		return res.Index, nil
	}
	// Exhausted retries: every draw above hit the just-admitted page (or
	// an empty rank). This last draw does not exclude that page.
	res, _ := table.AtRank(r.rng.Intn(n))
	return res.Index, nil
}

func (r *Random) Fault(table api.PageTable, faulting api.PageIndex) (api.Decision, error) {
	d := api.Decision{NewProt: api.ProtRead | api.ProtWrite}
	if table.Len() >= r.capacity {
		victim, err := r.pickVictim(table)
		if err != nil {
			return d, err
		}
		d.HasVictim = true
		d.Victim = victim
		d.VictimClean = false
	}
	r.lastAdmitted = faulting
	r.hasAdmitted = true
	return d, nil
}

func (r *Random) Touch(table api.PageTable, index api.PageIndex, write bool) (api.Prot, error) {
	return api.ProtRead | api.ProtWrite, nil
}

func (r *Random) SupportsPrefetch() bool { return false }
func (r *Random) Name() string           { return "random" }

var _ api.Policy = (*Random)(nil)

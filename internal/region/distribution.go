// File: internal/region/distribution.go
// Author: momentics <momentics@gmail.com>
//
// Placement of logical pages onto peers (spec.md §3), grounded on
// original_source/slaves_shmem.c and slaves_mpi.c, both of which spread
// pages round-robin across slaves by default; SPEC_FULL.md adds the
// block distribution as an explicit alternative for workloads with
// strong locality, selected via the DISTRIBUTION config key.

package region

import "github.com/momentics/jumbomem/api"

// RoundRobin places page p on peer p % numPeers, offset (p / numPeers) * pageSize.
type RoundRobin struct {
	NumPeers int
	PageSize int
}

func (r RoundRobin) Place(page api.PageIndex) api.Placement {
	n := uint64(r.NumPeers)
	p := uint64(page)
	return api.Placement{
		Holder: int(p % n),
		Offset: (p / n) * uint64(r.PageSize),
	}
}

// Block places contiguous runs of pages on the same peer before moving
// to the next, sized so each peer receives an even share of local_pages.
type Block struct {
	NumPeers    int
	PageSize    int
	PagesPerPeer uint64
}

func (b Block) Place(page api.PageIndex) api.Placement {
	p := uint64(page)
	holder := int(p / b.PagesPerPeer)
	if holder >= b.NumPeers {
		holder = b.NumPeers - 1
	}
	offset := (p % b.PagesPerPeer) * uint64(b.PageSize)
	return api.Placement{Holder: holder, Offset: offset}
}

// Distributor assigns a logical page to a peer and byte offset within
// that peer's buffer.
type Distributor interface {
	Place(page api.PageIndex) api.Placement
}

// NewDistributor builds the Distributor named by kind (api.DistRoundRobin
// or api.DistBlock).
func NewDistributor(kind api.Distribution, numPeers, pageSize int, localPages uint64) Distributor {
	switch kind {
	case api.DistBlock:
		perPeer := localPages / uint64(numPeers)
		if perPeer == 0 {
			perPeer = 1
		}
		return Block{NumPeers: numPeers, PageSize: pageSize, PagesPerPeer: perPeer}
	default:
		return RoundRobin{NumPeers: numPeers, PageSize: pageSize}
	}
}

// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Transport adapter contract (spec.md §4.5). Two variants (message-passing
// and one-sided put/get) implement the same async fetch/evict primitives;
// the fault handler never sees which one is wired in.

package api

// AsyncHandle is an opaque reference to an in-flight fetch or evict.
type AsyncHandle interface {
	// Wait blocks until the operation completes and returns its error, if any.
	Wait() error
}

// Transport moves whole pages between the master and whichever peer holds
// them. addr is a byte offset within the managed region; the transport
// resolves it to (holder, holder_offset) via the configured Distribution.
type Transport interface {
	// Init negotiates rank topology and the agreed page size / per-peer
	// byte budget. On a peer (rank != 0) this call does not return.
	Init() (rank int, numRanks int, pageSize int, perPeerBytes uint64, err error)

	FetchBegin(addr Addr, dst []byte) (AsyncHandle, error)
	EvictBegin(addr Addr, src []byte) (AsyncHandle, error)

	// Finalize broadcasts termination to all peers and releases transport
	// resources. Safe to call once, from the master only.
	Finalize() error
}

// PeerServer is the peer-side counterpart driven by a Transport's wire
// protocol: it owns the peer's buffer and answers PUT/GET requests until
// it receives TERMINATE.
type PeerServer interface {
	// Serve blocks in the peer event loop until termination.
	Serve() error
	// BufferBytes returns the negotiated per-peer byte budget actually granted.
	BufferBytes() uint64
}

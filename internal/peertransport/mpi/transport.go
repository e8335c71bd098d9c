// Package mpi implements the message-passing peer transport (spec.md
// §4.5 Variant A), grounded on original_source/slaves_mpi.c: every
// eviction is a PUT_OFFSET then a PUT_DATA, every fetch is a GET
// answered with a RESPONSE, and shutdown is a TERMINATE broadcast to
// every peer. MPI's two-phase put becomes two wire.Frame writes over a
// plain TCP connection per peer; there is no MPI runtime in Go, so rank
// assignment and negotiation happen over the connection itself
// (internal/peertransport.DialPeers/AcceptHandshake).
//
// Author: momentics <momentics@gmail.com>
package mpi

import (
	"fmt"
	"log"
	"net"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/peertransport"
	"github.com/momentics/jumbomem/internal/wire"
)

// handle adapts a synchronous frame exchange to api.AsyncHandle by
// running it on its own goroutine, Go's equivalent of MPI's
// non-blocking Isend/Irecv plus a later Wait.
type handle struct {
	done chan error
}

func (h *handle) Wait() error { return <-h.done }

func run(f func() error) api.AsyncHandle {
	h := &handle{done: make(chan error, 1)}
	go func() { h.done <- f() }()
	return h
}

// Transport is the master-side api.Transport implementation. It holds
// one TCP connection per peer and a Distribution deciding which peer
// holds which page.
type Transport struct {
	addrs        []string
	pageSize     int
	wantPerPeer  uint64
	distKind     api.Distribution
	localPages   uint64

	conns []net.Conn
	dist  peertransport.Distributor
}

// New builds an mpi.Transport that will dial addrs (one per peer) once
// Init is called.
func New(addrs []string, pageSize int, wantPerPeer uint64, distKind api.Distribution, localPages uint64) *Transport {
	return &Transport{addrs: addrs, pageSize: pageSize, wantPerPeer: wantPerPeer, distKind: distKind, localPages: localPages}
}

func (t *Transport) Init() (rank, numRanks int, pageSize int, perPeerBytes uint64, err error) {
	conns, agreed, err := peertransport.DialPeers(t.addrs, t.pageSize, t.wantPerPeer)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	t.conns = conns
	t.dist = peertransport.NewDistributor(t.distKind, len(conns), t.pageSize, t.localPages)
	log.Printf("[mpi] negotiated %d peers, %d bytes/peer, %d-byte pages", len(conns), agreed, t.pageSize)
	return 0, len(conns) + 1, t.pageSize, agreed, nil
}

func (t *Transport) peerFor(addr api.Addr) (net.Conn, uint64) {
	page := uint64(addr) / uint64(t.pageSize)
	placement := t.dist.Place(api.PageIndex(page))
	return t.conns[placement.Holder], placement.Offset
}

// FetchBegin issues a GET for the page containing addr and waits for
// the RESPONSE, copying the page bytes into dst.
func (t *Transport) FetchBegin(addr api.Addr, dst []byte) (api.AsyncHandle, error) {
	conn, offset := t.peerFor(addr)
	return run(func() error {
		if _, err := conn.Write(wire.EncodeOffset(wire.TagGet, offset)); err != nil {
			return fmt.Errorf("mpi: sending GET: %w", err)
		}
		f, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("mpi: awaiting RESPONSE: %w", err)
		}
		if f.Tag != wire.TagResponse {
			return fmt.Errorf("%w: expected RESPONSE, got %s", api.ErrProtocolViolation, f.Tag)
		}
		if len(f.Payload) != len(dst) {
			return fmt.Errorf("%w: RESPONSE carried %d bytes, wanted %d", api.ErrProtocolViolation, len(f.Payload), len(dst))
		}
		copy(dst, f.Payload)
		return nil
	}), nil
}

// EvictBegin sends PUT_OFFSET then PUT_DATA for the page containing
// addr, the same two-message sequence slaves_mpi.c's master loop uses.
func (t *Transport) EvictBegin(addr api.Addr, src []byte) (api.AsyncHandle, error) {
	conn, offset := t.peerFor(addr)
	return run(func() error {
		if _, err := conn.Write(wire.EncodeOffset(wire.TagPutOffset, offset)); err != nil {
			return fmt.Errorf("mpi: sending PUT_OFFSET: %w", err)
		}
		if _, err := conn.Write(wire.Encode(wire.Frame{Tag: wire.TagPutData, Payload: src})); err != nil {
			return fmt.Errorf("mpi: sending PUT_DATA: %w", err)
		}
		return nil
	}), nil
}

// Finalize broadcasts TERMINATE to every peer, the MPI_Send loop at the
// end of slaves_mpi.c's master half.
func (t *Transport) Finalize() error {
	var firstErr error
	for i, conn := range t.conns {
		if _, err := conn.Write(wire.Encode(wire.Frame{Tag: wire.TagTerminate})); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mpi: terminating peer %d: %w", i+1, err)
		}
		conn.Close()
	}
	return firstErr
}

var _ api.Transport = (*Transport)(nil)

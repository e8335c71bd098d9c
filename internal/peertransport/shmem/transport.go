// Package shmem implements the one-sided put/get peer transport
// (spec.md §4.5 Variant B), grounded on original_source/slaves_shmem.c:
// shmem_putmem_nb writes a whole page to a remote buffer in one
// operation (no separate offset message the way MPI needs one), and
// shmem_getmem_nb reads one back. Over plain TCP there's no real RDMA,
// so PUT_DATA here carries its offset inline instead of requiring a
// preceding PUT_OFFSET message — the wire-level expression of "one-sided":
// one message in, no protocol handshake on the peer's part.
//
// Author: momentics <momentics@gmail.com>
package shmem

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/peertransport"
	"github.com/momentics/jumbomem/internal/wire"
)

type handle struct {
	done chan error
}

func (h *handle) Wait() error { return <-h.done }

func run(f func() error) api.AsyncHandle {
	h := &handle{done: make(chan error, 1)}
	go func() { h.done <- f() }()
	return h
}

// Transport is the master-side api.Transport implementation for the
// one-sided variant.
type Transport struct {
	addrs       []string
	pageSize    int
	wantPerPeer uint64
	distKind    api.Distribution
	localPages  uint64

	conns []net.Conn
	dist  peertransport.Distributor
}

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
	log.Printf("[shmem] negotiated %d peers, %d bytes/peer, %d-byte pages", len(conns), agreed, t.pageSize)
	return 0, len(conns) + 1, t.pageSize, agreed, nil
}

func (t *Transport) peerFor(addr api.Addr) (net.Conn, uint64) {
	page := uint64(addr) / uint64(t.pageSize)
	placement := t.dist.Place(api.PageIndex(page))
	return t.conns[placement.Holder], placement.Offset
}

// putFrame encodes an offset+data PUT in one message: 8-byte offset
// prefix followed by the page bytes, wrapped in a single TagPutData
// frame (no separate PUT_OFFSET, unlike the mpi variant).
func putFrame(offset uint64, data []byte) []byte {
	payload := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(payload, offset)
	copy(payload[8:], data)
	return wire.Encode(wire.Frame{Tag: wire.TagPutData, Payload: payload})
}

// EvictBegin issues a single one-sided put carrying both the offset and
// the page bytes.
func (t *Transport) EvictBegin(addr api.Addr, src []byte) (api.AsyncHandle, error) {
	conn, offset := t.peerFor(addr)
	return run(func() error {
		if _, err := conn.Write(putFrame(offset, src)); err != nil {
			return fmt.Errorf("shmem: put: %w", err)
		}
		return nil
	}), nil
}

// FetchBegin issues a GET carrying the offset and waits for the RESPONSE.
func (t *Transport) FetchBegin(addr api.Addr, dst []byte) (api.AsyncHandle, error) {
	conn, offset := t.peerFor(addr)
	return run(func() error {
		if _, err := conn.Write(wire.EncodeOffset(wire.TagGet, offset)); err != nil {
			return fmt.Errorf("shmem: get: %w", err)
		}
		f, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("shmem: awaiting response: %w", err)
		}
		if f.Tag != wire.TagResponse {
			return fmt.Errorf("%w: expected RESPONSE, got %s", api.ErrProtocolViolation, f.Tag)
		}
		if len(f.Payload) != len(dst) {
			return fmt.Errorf("%w: response carried %d bytes, wanted %d", api.ErrProtocolViolation, len(f.Payload), len(dst))
		}
		copy(dst, f.Payload)
		return nil
	}), nil
}

func (t *Transport) Finalize() error {
	var firstErr error
	for i, conn := range t.conns {
		if _, err := conn.Write(wire.Encode(wire.Frame{Tag: wire.TagTerminate})); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shmem: terminating peer %d: %w", i+1, err)
		}
		conn.Close()
	}
	return firstErr
}

var _ api.Transport = (*Transport)(nil)

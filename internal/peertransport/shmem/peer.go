// File: internal/peertransport/shmem/peer.go
// Author: momentics <momentics@gmail.com>
//
// Peer-side loop for Variant B: unlike slaves_shmem.c's real peer (which
// just spins forever while the master writes directly into its memory
// over RDMA), a TCP peer still has to pull bytes off the wire itself —
// but it does so with no multi-message protocol: one PUT_DATA frame is
// a complete put, one GET frame is a complete get request.

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

type Peer struct {
	ln       net.Listener
	buf      []byte
	granted  uint64
	pageSize int
	probe    func() (uint64, error)
	mlock    bool
}

// Listen mirrors mpi.Listen; mlock requests the granted buffer be
// pinned in RAM (spec.md §6 MLOCK).
func Listen(addr string, probe func() (uint64, error), mlock bool) (*Peer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("shmem: listen %s: %w", addr, err)
	}
	return &Peer{ln: ln, probe: probe, mlock: mlock}, nil
}

func (p *Peer) Addr() net.Addr      { return p.ln.Addr() }
func (p *Peer) BufferBytes() uint64 { return p.granted }

func (p *Peer) Serve() error {
	conn, err := p.ln.Accept()
	if err != nil {
		return fmt.Errorf("shmem: accept: %w", err)
	}
	defer conn.Close()

	pageSize, granted, err := peertransport.AcceptHandshake(conn, p.probe)
	if err != nil {
		return err
	}
	p.granted = granted
	p.pageSize = pageSize
	p.buf = make([]byte, granted)
	log.Printf("[shmem-peer] serving with %d bytes granted", granted)

	if p.mlock {
		if err := peertransport.LockBuffer(p.buf); err != nil {
			log.Printf("[shmem-peer] mlock failed, continuing unlocked: %v", err)
		} else {
			defer func() {
				if err := peertransport.UnlockBuffer(p.buf); err != nil {
					log.Printf("[shmem-peer] munlock failed: %v", err)
				}
			}()
		}
	}

	for {
		f, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("shmem-peer: read frame: %w", err)
		}
		switch f.Tag {
		case wire.TagTerminate:
			return nil
		case wire.TagPutData:
			if len(f.Payload) < 8 {
				return fmt.Errorf("%w: PUT_DATA frame too short for an offset prefix", api.ErrProtocolViolation)
			}
			offset := binary.BigEndian.Uint64(f.Payload[:8])
			data := f.Payload[8:]
			if offset+uint64(len(data)) > uint64(len(p.buf)) {
				return fmt.Errorf("%w: put overruns peer buffer", api.ErrProtocolViolation)
			}
			copy(p.buf[offset:], data)
		case wire.TagGet:
			off, err := wire.DecodeOffset(f)
			if err != nil {
				return err
			}
			if off+uint64(p.pageSize) > uint64(len(p.buf)) {
				return fmt.Errorf("%w: get reads past peer buffer", api.ErrProtocolViolation)
			}
			resp := p.buf[off : off+uint64(p.pageSize)]
			if _, err := conn.Write(wire.Encode(wire.Frame{Tag: wire.TagResponse, Payload: resp})); err != nil {
				return fmt.Errorf("shmem-peer: sending response: %w", err)
			}
		default:
			return fmt.Errorf("%w: unrecognized tag %s", api.ErrProtocolViolation, f.Tag)
		}
	}
}

var _ api.PeerServer = (*Peer)(nil)

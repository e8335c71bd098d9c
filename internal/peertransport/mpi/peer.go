// File: internal/peertransport/mpi/peer.go
// Author: momentics <momentics@gmail.com>
//
// Peer-side event loop for Variant A, grounded on slaves_mpi.c's
// jm_initialize_slaves loop: PUT_OFFSET remembers an offset, PUT_DATA
// writes at the remembered offset, GET is answered with a RESPONSE, and
// TERMINATE ends the loop. The only ordering rule enforced is that
// PUT_DATA needs a pending PUT_OFFSET; a GET or another PUT_OFFSET
// arriving between PUT_OFFSET and PUT_DATA is accepted (the later
// PUT_OFFSET replaces the pending offset).

package mpi

import (
	"fmt"
	"log"
	"net"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/peertransport"
	"github.com/momentics/jumbomem/internal/wire"
)

// Peer implements api.PeerServer: it accepts the master's single
// connection, negotiates the buffer budget, and then answers PUT/GET
// requests against an in-memory buffer until TERMINATE.
type Peer struct {
	ln       net.Listener
	buf      []byte
	granted  uint64
	pageSize int
	probe    func() (uint64, error)
	mlock    bool
}

// Listen opens addr and returns a Peer ready to Serve one master
// connection. probe reports how many bytes of local memory this peer
// can actually offer (nil means accept whatever the master asks for).
// mlock requests the granted buffer be pinned in RAM (spec.md §6 MLOCK).
func Listen(addr string, probe func() (uint64, error), mlock bool) (*Peer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mpi: listen %s: %w", addr, err)
	}
	return &Peer{ln: ln, probe: probe, mlock: mlock}, nil
}

func (p *Peer) Addr() net.Addr { return p.ln.Addr() }

func (p *Peer) BufferBytes() uint64 { return p.granted }

// Serve accepts the master's connection, performs the handshake, then
// loops on frames until TERMINATE or the connection closes.
func (p *Peer) Serve() error {
	conn, err := p.ln.Accept()
	if err != nil {
		return fmt.Errorf("mpi: accept: %w", err)
	}
	defer conn.Close()

	pageSize, granted, err := peertransport.AcceptHandshake(conn, p.probe)
	if err != nil {
		return err
	}
	p.granted = granted
	p.pageSize = pageSize
	p.buf = make([]byte, granted)
	log.Printf("[mpi-peer] serving with %d bytes granted", granted)

	if p.mlock {
		if err := peertransport.LockBuffer(p.buf); err != nil {
			log.Printf("[mpi-peer] mlock failed, continuing unlocked: %v", err)
		} else {
			defer func() {
				if err := peertransport.UnlockBuffer(p.buf); err != nil {
					log.Printf("[mpi-peer] munlock failed: %v", err)
				}
			}()
		}
	}

	var pendingOffset uint64
	havePending := false
	for {
		f, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("mpi-peer: read frame: %w", err)
		}
		switch f.Tag {
		case wire.TagTerminate:
			return nil
		case wire.TagPutOffset:
			off, err := wire.DecodeOffset(f)
			if err != nil {
				return err
			}
			pendingOffset = off
			havePending = true
		case wire.TagPutData:
			if !havePending {
				return fmt.Errorf("%w: PUT_DATA with no preceding PUT_OFFSET", api.ErrProtocolViolation)
			}
			if pendingOffset+uint64(len(f.Payload)) > uint64(len(p.buf)) {
				return fmt.Errorf("%w: PUT_DATA overruns peer buffer", api.ErrProtocolViolation)
			}
			copy(p.buf[pendingOffset:], f.Payload)
			havePending = false
		case wire.TagGet:
			off, err := wire.DecodeOffset(f)
			if err != nil {
				return err
			}
			if off+uint64(p.pageSize) > uint64(len(p.buf)) {
				return fmt.Errorf("%w: GET reads past peer buffer", api.ErrProtocolViolation)
			}
			resp := p.buf[off : off+uint64(p.pageSize)]
			if _, err := conn.Write(wire.Encode(wire.Frame{Tag: wire.TagResponse, Payload: resp})); err != nil {
				return fmt.Errorf("mpi-peer: sending RESPONSE: %w", err)
			}
		default:
			return fmt.Errorf("%w: unrecognized tag %s", api.ErrProtocolViolation, f.Tag)
		}
	}
}

var _ api.PeerServer = (*Peer)(nil)

// Package peertransport holds the master-dial / peer-listen plumbing
// shared by both wire-protocol variants (spec.md §4.5): the master
// connects to every peer's listen address in rank order and exchanges a
// one-line handshake negotiating page size and the per-peer byte budget,
// the Go-over-TCP analogue of slaves_mpi.c's MPI_Init rank negotiation
// and slaves_shmem.c's shmem_long_min_to_all minimum-memory reduction.
//
// Author: momentics <momentics@gmail.com>
package peertransport

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/region"
)

// HandshakeRequest is what the master sends each peer on connect.
type HandshakeRequest struct {
	PageSize     int
	WantPerPeer  uint64
}

// HandshakeReply is what a peer sends back: its own free-memory estimate,
// used the way shmem_long_min_to_all lets every rank agree on the
// smallest buffer any of them can actually back.
type HandshakeReply struct {
	Rank           int
	OfferedPerPeer uint64
}

// DialPeers connects to every address in order, rank 1..N, performing the
// handshake on each connection. Returns the live connections and the
// negotiated per-peer byte budget (the minimum any peer offered).
func DialPeers(addrs []string, pageSize int, wantPerPeer uint64) ([]net.Conn, uint64, error) {
	conns := make([]net.Conn, 0, len(addrs))
	agreed := wantPerPeer
	for i, addr := range addrs {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, 0, fmt.Errorf("peertransport: dial peer %d (%s): %w", i+1, addr, err)
		}
		if err := writeLine(conn, fmt.Sprintf("%d %d", pageSize, wantPerPeer)); err != nil {
			return nil, 0, err
		}
		line, err := readLine(conn)
		if err != nil {
			return nil, 0, fmt.Errorf("peertransport: handshake with peer %d: %w", i+1, err)
		}
		offered, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("peertransport: malformed handshake reply from peer %d: %w", i+1, err)
		}
		if offered < agreed {
			agreed = offered
		}
		conns = append(conns, conn)
	}
	return conns, agreed, nil
}

// AcceptHandshake is the peer side of DialPeers: read the master's
// request, reply with how many bytes this peer can actually offer.
func AcceptHandshake(conn net.Conn, probe func() (uint64, error)) (pageSize int, perPeer uint64, err error) {
	line, err := readLine(conn)
	if err != nil {
		return 0, 0, fmt.Errorf("peertransport: reading handshake: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("peertransport: malformed handshake line %q", line)
	}
	pageSize, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	requested, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	offered := requested
	if probe != nil {
		free, perr := probe()
		if perr == nil && free < offered {
			offered = free
		}
	}
	if err := writeLine(conn, strconv.FormatUint(offered, 10)); err != nil {
		return 0, 0, err
	}
	return pageSize, offered, nil
}

func writeLine(conn net.Conn, s string) error {
	_, err := conn.Write([]byte(s + "\n"))
	return err
}

func readLine(conn net.Conn) (string, error) {
	r := bufio.NewReader(conn)
	return r.ReadString('\n')
}

// Distributor is a thin re-export so mpi/shmem don't need a direct
// import of internal/region for this type.
type Distributor = region.Distributor

// NewDistributor is a thin re-export so mpi/shmem don't need a direct
// import of internal/region for this one call.
func NewDistributor(kind api.Distribution, numPeers, pageSize int, localPages uint64) region.Distributor {
	return region.NewDistributor(kind, numPeers, pageSize, localPages)
}

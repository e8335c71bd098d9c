// Command peer runs a paging-engine peer: it listens for a master's
// handshake, serves PUT/GET requests until TERMINATE, and exits —
// grounded on server/run.go's listen/accept/serve shape, adapted from a
// WebSocket connection handler to the PUT/GET/TERMINATE wire protocol in
// internal/wire and internal/peertransport.
//
// Author: momentics <momentics@gmail.com>
package main

import (
	"flag"
	"log"

	"github.com/momentics/jumbomem/internal/config"
	"github.com/momentics/jumbomem/internal/peertransport/mpi"
	"github.com/momentics/jumbomem/internal/peertransport/shmem"
	"github.com/momentics/jumbomem/internal/sysinfo"
)

func main() {
	addr := flag.String("addr", ":7000", "address to listen on for the master's handshake")
	variant := flag.String("variant", "mpi", "peer transport variant: mpi or shmem")
	pageSize := flag.Int("page-size", 4096, "page size in bytes, used only when empirically probing RAM")
	maxBytes := flag.Uint64("max-bytes", 0, "cap on bytes offered to the master (0 = probe available RAM instead)")
	flag.Parse()

	store := config.FromEnvironment()
	mlock := store.Bool(config.Mlock, false)
	reduceMem := store.Bool(config.ReduceMem, false)
	reserveAbs, reservePct := store.ReserveSplit(config.ReserveMem)

	probe := func() (uint64, error) { return *maxBytes, nil }
	if *maxBytes == 0 {
		probe = func() (uint64, error) {
			avail, err := sysinfo.AvailableMemory(reserveAbs, reservePct)
			if err != nil {
				return 0, err
			}
			if reduceMem {
				if reduced, err := sysinfo.ReduceForFaults(avail, *pageSize); err == nil {
					avail = reduced
				}
			}
			return avail, nil
		}
	}

	var serve func() error
	var bufferBytes func() uint64
	switch *variant {
	case "shmem":
		p, err := shmem.Listen(*addr, probe, mlock)
		if err != nil {
			log.Fatalf("[peer] listen: %v", err)
		}
		serve, bufferBytes = p.Serve, p.BufferBytes
	default:
		p, err := mpi.Listen(*addr, probe, mlock)
		if err != nil {
			log.Fatalf("[peer] listen: %v", err)
		}
		serve, bufferBytes = p.Serve, p.BufferBytes
	}

	log.Printf("[peer] listening on %s (%s variant)", *addr, *variant)
	if err := serve(); err != nil {
		log.Fatalf("[peer] serve: %v", err)
	}
	log.Printf("[peer] terminated after serving with %d bytes granted", bufferBytes())
}

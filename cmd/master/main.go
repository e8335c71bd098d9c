// Command master runs the paging engine's master process: it wires the
// engine facade from the environment (spec.md §6), negotiates peer
// topology, and blocks serving faults until a shutdown signal arrives —
// grounded on server/run.go's affinity-pin / accept-loop / signal-driven
// teardown shape, adapted to a fault-servicing loop instead of a
// WebSocket accept loop.
//
// Author: momentics <momentics@gmail.com>
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/momentics/jumbomem/engine"
	"github.com/momentics/jumbomem/internal/config"
)

func main() {
	peers := flag.String("peers", "", "comma-separated peer addresses, host:port")
	variant := flag.String("variant", "mpi", "peer transport variant: mpi or shmem")
	flag.Parse()

	var peerAddrs []string
	if *peers != "" {
		peerAddrs = strings.Split(*peers, ",")
	}
	if len(peerAddrs) == 0 {
		log.Fatal("[master] at least one -peers address is required")
	}

	store := config.FromEnvironment()
	cfg := engine.FromStore(store, peerAddrs)
	if *variant == "shmem" {
		cfg.Variant = engine.VariantSHMEM
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("[master] building engine: %v", err)
	}
	if err := eng.Start(); err != nil {
		log.Fatalf("[master] starting engine: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("[master] serving faults across %d page(s) of %d byte(s); ctrl-C to stop", cfg.LocalPages, cfg.PageSize)
	<-sig

	log.Print("[master] shutting down")
	if err := eng.Stop(); err != nil {
		log.Fatalf("[master] stopping engine: %v", err)
	}
}

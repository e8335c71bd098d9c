package mpi

import (
	"bytes"
	"testing"
	"time"

	"github.com/momentics/jumbomem/api"
)

func TestFetchAndEvictRoundTrip(t *testing.T) {
	const pageSize = 64

	peer, err := Listen("127.0.0.1:0", func() (uint64, error) { return 4096, nil }, false)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- peer.Serve() }()

	tr := New([]string{peer.Addr().String()}, pageSize, 4096, api.DistRoundRobin, 64)
	rank, numRanks, negotiatedPage, perPeer, err := tr.Init()
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if rank != 0 || numRanks != 2 || negotiatedPage != pageSize || perPeer == 0 {
		t.Fatalf("unexpected negotiation: rank=%d numRanks=%d page=%d perPeer=%d", rank, numRanks, negotiatedPage, perPeer)
	}

	payload := bytes.Repeat([]byte{0xAB}, pageSize)
	evictHandle, err := tr.EvictBegin(0, payload)
	if err != nil {
		t.Fatalf("evict begin: %v", err)
	}
	if err := evictHandle.Wait(); err != nil {
		t.Fatalf("evict wait: %v", err)
	}

	dst := make([]byte, pageSize)
	fetchHandle, err := tr.FetchBegin(0, dst)
	if err != nil {
		t.Fatalf("fetch begin: %v", err)
	}
	if err := fetchHandle.Wait(); err != nil {
		t.Fatalf("fetch wait: %v", err)
	}
	if !bytes.Equal(dst, payload) {
		t.Fatalf("fetched bytes did not match evicted bytes")
	}

	if err := tr.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("peer serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer did not terminate after Finalize")
	}
}

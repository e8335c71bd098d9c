package shmem

import (
	"bytes"
	"testing"
	"time"

	"github.com/momentics/jumbomem/api"
)

func TestOneSidedPutGetRoundTrip(t *testing.T) {
	const pageSize = 32

	peer, err := Listen("127.0.0.1:0", nil, false)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- peer.Serve() }()

	tr := New([]string{peer.Addr().String()}, pageSize, 2048, api.DistRoundRobin, 64)
	if _, _, _, _, err := tr.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	payload := bytes.Repeat([]byte{0x5A}, pageSize)
	if err := mustWait(tr.EvictBegin(0, payload)); err != nil {
		t.Fatalf("evict: %v", err)
	}

	dst := make([]byte, pageSize)
	if err := mustWait(tr.FetchBegin(0, dst)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(dst, payload) {
		t.Fatal("fetched bytes did not match put bytes")
	}

	if err := tr.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("peer serve error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer did not terminate")
	}
}

func mustWait(h api.AsyncHandle, err error) error {
	if err != nil {
		return err
	}
	return h.Wait()
}

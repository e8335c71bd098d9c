//go:build !linux
// +build !linux

// File: internal/region/backing_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux fallback: slots live in ordinary Go-managed memory and
// protection is bookkeeping only, mirroring the teacher's
// affinity_stub.go / bufferpool_windows.go no-op pattern.

package region

import "github.com/momentics/jumbomem/api"

type stubBacking struct {
	slots    [][]byte
	pageSize int
	prot     []api.Prot
}

func newBacking(slots, pageSize int) (Backing, error) {
	if slots < 1 {
		slots = 1
	}
	b := &stubBacking{
		slots:    make([][]byte, slots),
		pageSize: pageSize,
		prot:     make([]api.Prot, slots),
	}
	for i := range b.slots {
		b.slots[i] = make([]byte, pageSize)
		b.prot[i] = api.ProtRead | api.ProtWrite
	}
	return b, nil
}

func (b *stubBacking) Slot(i int) []byte { return b.slots[i] }

func (b *stubBacking) Protect(i int, prot api.Prot) error {
	b.prot[i] = prot
	return nil
}

func (b *stubBacking) ProtOf(i int) api.Prot { return b.prot[i] }

func (b *stubBacking) LockMemory() error { return ErrMlockUnsupported }

func (b *stubBacking) Close() error { return nil }

var _ Backing = (*stubBacking)(nil)

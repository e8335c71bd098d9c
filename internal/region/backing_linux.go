//go:build linux
// +build linux

// File: internal/region/backing_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux backing: an anonymous mmap big enough for all slots, with
// mprotect enforcing per-slot protection — the direct analogue of
// original_source/initialize.c reserving jm_globals.memregion and of
// the fault handler's mprotect calls in faulthandler.c.

package region

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/jumbomem/api"
)

type linuxBacking struct {
	mem      []byte
	pageSize int
	prot     []api.Prot
}

func newBacking(slots, pageSize int) (Backing, error) {
	if slots < 1 {
		slots = 1
	}
	size := slots * pageSize
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", size, err)
	}
	b := &linuxBacking{mem: mem, pageSize: pageSize, prot: make([]api.Prot, slots)}
	for i := range b.prot {
		b.prot[i] = api.ProtRead | api.ProtWrite
	}
	return b, nil
}

func (b *linuxBacking) Slot(i int) []byte {
	start := i * b.pageSize
	return b.mem[start : start+b.pageSize]
}

func (b *linuxBacking) Protect(i int, prot api.Prot) error {
	start := i * b.pageSize
	osProt := unix.PROT_NONE
	if prot&api.ProtRead != 0 {
		osProt |= unix.PROT_READ
	}
	if prot&api.ProtWrite != 0 {
		osProt |= unix.PROT_WRITE
	}
	if err := unix.Mprotect(b.mem[start:start+b.pageSize], osProt); err != nil {
		return fmt.Errorf("region: mprotect slot %d: %w", i, err)
	}
	b.prot[i] = prot
	return nil
}

func (b *linuxBacking) ProtOf(i int) api.Prot { return b.prot[i] }

func (b *linuxBacking) LockMemory() error {
	return unix.Mlock(b.mem)
}

func (b *linuxBacking) Close() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}

var _ Backing = (*linuxBacking)(nil)

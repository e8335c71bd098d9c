// Package sysinfo probes local RAM and kernel mapping limits, grounded
// on original_source/sysinfo.c's jm_get_available_memory_size and
// jm_get_maximum_map_count: §4.1's "each peer probes available RAM...
// optionally reduces it by a configurable absolute or percentage
// reserve" and the local_pages cap both come from here.
//
// Author: momentics <momentics@gmail.com>
package sysinfo

import "errors"

// ErrUnsupported is returned on platforms with no kernel memory-status
// file to read (sysinfo.c's "jm_abort: failed to determine available
// physical memory" path, softened to a returned error per Go idiom).
var ErrUnsupported = errors.New("sysinfo: platform probe not supported")

// ReserveMemory applies RESERVEMEM to a raw available-bytes figure,
// mirroring sysinfo.c's reserve_memory: an absolute reservation takes
// priority over a percentage one, matching JM_RESERVEMEM's either/or
// absolute-vs-percent parsing.
func ReserveMemory(available uint64, absBytes uint64, pct float64) uint64 {
	if absBytes > 0 {
		if absBytes >= available {
			return 0
		}
		return available - absBytes
	}
	if pct > 0 {
		if pct >= 100 {
			return 0
		}
		reduced := float64(available) * (1 - pct/100.0)
		return uint64(reduced)
	}
	return available
}

// AvailableMemory reports usable RAM in bytes (MemFree+Buffers+Cached on
// Linux), already reduced per ReserveMemory, or ErrUnsupported where no
// platform probe exists — the Go idiomatic substitute for sysinfo.c's
// sysconf(_SC_AVPHYS_PAGES) fallback, which this implementation does not
// reproduce since Go has no portable equivalent outside /proc.
func AvailableMemory(absBytes uint64, pct float64) (uint64, error) {
	raw, err := rawAvailableMemory()
	if err != nil {
		return 0, err
	}
	return ReserveMemory(raw, absBytes, pct), nil
}

// MaxMapCount reports the kernel's per-process memory-mapping limit
// (/proc/sys/vm/max_map_count on Linux), used to cap local_pages per
// §4.1's "2·max_mappings − 1" bound.
func MaxMapCount() (uint64, error) {
	return rawMaxMapCount()
}

// MajorFaults reports this process's cumulative major-page-fault count
// (the majflt field of /proc/self/stat on Linux), the Go substitute for
// getrusage(RUSAGE_SELF, ...).ru_majflt that slaves_mpi.c samples around
// its REDUCEMEM touch passes.
func MajorFaults() (uint64, error) {
	return rawMajorFaults()
}

// touchPages writes one byte per page of buf, forcing every page to be
// faulted into residency, mirroring slaves_mpi.c's "touch every page
// once" loop.
func touchPages(buf []byte, pageSize int) {
	if pageSize <= 0 {
		pageSize = 4096
	}
	for i := 0; i < len(buf); i += pageSize {
		buf[i] = 0
	}
}

// ReduceForFaults implements REDUCEMEM: it allocates a scratch buffer of
// candidateBytes, touches every page twice, and shrinks the estimate by
// one page for every major fault observed between the two passes —
// exactly slaves_mpi.c's "touch every page once to load every page into
// memory... touch every page again... reduce slavebytes by
// newfaults*ospagesize." If the platform exposes no fault counter, the
// candidate is returned unreduced.
func ReduceForFaults(candidateBytes uint64, pageSize int) (uint64, error) {
	if candidateBytes == 0 {
		return 0, nil
	}
	buf := make([]byte, candidateBytes)
	touchPages(buf, pageSize)

	before, err := MajorFaults()
	if err != nil {
		return candidateBytes, nil
	}
	touchPages(buf, pageSize)
	after, err := MajorFaults()
	if err != nil {
		return candidateBytes, nil
	}

	newFaults := after - before
	if newFaults == 0 {
		return candidateBytes, nil
	}
	reduced := newFaults * uint64(pageSize)
	if reduced >= candidateBytes {
		return 0, nil
	}
	return candidateBytes - reduced, nil
}

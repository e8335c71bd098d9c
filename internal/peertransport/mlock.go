// File: internal/peertransport/mlock.go
// Author: momentics <momentics@gmail.com>
//
// MLOCK support for peer buffers, grounded on jumbomem.h's jm_mlock and
// slaves_mpi.c's "lock our buffer into memory" step — the original
// treats a failed mlock as advisory (it logs and keeps running), so
// LockBuffer returns an error for the caller to log rather than abort.

package peertransport

// LockBuffer requests the OS pin buf's pages in RAM, best-effort.
func LockBuffer(buf []byte) error {
	return rawLockBuffer(buf)
}

// UnlockBuffer releases a prior LockBuffer, best-effort.
func UnlockBuffer(buf []byte) error {
	return rawUnlockBuffer(buf)
}

//go:build linux

package peertransport

import "golang.org/x/sys/unix"

func rawLockBuffer(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Mlock(buf)
}

func rawUnlockBuffer(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Munlock(buf)
}

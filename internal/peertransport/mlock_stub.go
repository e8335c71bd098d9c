//go:build !linux

package peertransport

import "errors"

var errMlockUnsupported = errors.New("peertransport: mlock not supported on this platform")

func rawLockBuffer(buf []byte) error   { return errMlockUnsupported }
func rawUnlockBuffer(buf []byte) error { return errMlockUnsupported }

//go:build !linux

package sysinfo

func rawAvailableMemory() (uint64, error) { return 0, ErrUnsupported }

func rawMaxMapCount() (uint64, error) { return 0, ErrUnsupported }

func rawMajorFaults() (uint64, error) { return 0, ErrUnsupported }

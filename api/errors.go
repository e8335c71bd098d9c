// Author: momentics <momentics@gmail.com>
//
// Sentinel and structured errors shared across the engine.

package api

import "fmt"

var (
	ErrOutOfRegion        = fmt.Errorf("address outside managed region")
	ErrFaultReentrant      = fmt.Errorf("reentrant fault on a different address")
	ErrProtocolViolation   = fmt.Errorf("peer wire protocol violation")
	ErrPageTableCorrupt    = fmt.Errorf("page table invariant violated")
	ErrAllocatorViolation  = fmt.Errorf("allocator ownership invariant violated")
	ErrRegionExhausted     = fmt.Errorf("managed region exhausted")
	ErrNoResident          = fmt.Errorf("no resident pages available for eviction")
	ErrTransportClosed     = fmt.Errorf("transport is closed")
	ErrNotSupported        = fmt.Errorf("operation not supported by this policy")
	ErrSignalAlreadyReserved = fmt.Errorf("signal already reserved")
)

// ErrorCode classifies a StructuredError for programmatic dispatch.
type ErrorCode int

const (
	ErrCodeInvariant ErrorCode = iota
	ErrCodeEnvironmental
	ErrCodeTransient
)

// StructuredError carries a taxonomy code (spec.md §7) plus free-form context,
// used on the fatal abort path where a single diagnostic line must name the
// offending resource.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

func (e *StructuredError) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message, Context: make(map[string]any)}
}

func (e *StructuredError) WithContext(key string, value any) *StructuredError {
	e.Context[key] = value
	return e
}

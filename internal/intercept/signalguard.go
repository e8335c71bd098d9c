// File: internal/intercept/signalguard.go
// Author: momentics <momentics@gmail.com>
//
// Signal-masking interception, grounded on funcoverrides.c's signal,
// sigaction, sigprocmask and pthread_sigmask overrides: the original
// strips SIGSEGV out of every mask the caller's program installs, and
// silently substitutes its own handler whenever the caller tries to
// replace SIGSEGV's. Go's runtime already owns SIGSEGV for its own
// purposes (stack growth, nil-pointer faults) and offers no hook to
// shadow it the way libc's signal()/sigaction() can be shadowed, so
// SignalGuard adapts the same INTENT — "reserve one signal exclusively
// for the engine, reject attempts by the hosting program to claim it"
// — to Go's cooperative os/signal model instead of silently lying to
// the caller about mask contents.

package intercept

import (
	"os"
	"os/signal"
	"sync"

	"github.com/momentics/jumbomem/api"
)

// SignalGuard reserves a fixed set of OS signals for engine-internal
// use (e.g. a heartbeat tick, a controlled-shutdown request) and
// refuses a second claim on any of them, the Go-idiomatic analogue of
// funcoverrides.c pretending to install a caller's SIGSEGV handler
// while quietly keeping its own.
type SignalGuard struct {
	mu       sync.Mutex
	reserved map[os.Signal]chan<- os.Signal
}

// NewSignalGuard constructs an empty guard.
func NewSignalGuard() *SignalGuard {
	return &SignalGuard{reserved: make(map[os.Signal]chan<- os.Signal)}
}

// Reserve claims sig exclusively for the engine, delivering it to ch.
// A second Reserve of the same signal — by engine code or caller code
// sharing the guard — fails with api.ErrSignalAlreadyReserved instead
// of silently overwriting the first claim.
func (g *SignalGuard) Reserve(sig os.Signal, ch chan<- os.Signal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.reserved[sig]; taken {
		return api.ErrSignalAlreadyReserved
	}
	g.reserved[sig] = ch
	signal.Notify(ch, sig)
	return nil
}

// Release gives up the engine's exclusive claim on sig.
func (g *SignalGuard) Release(sig os.Signal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.reserved[sig]; ok {
		signal.Stop(ch)
		delete(g.reserved, sig)
	}
}

// IsReserved reports whether sig is currently claimed by the engine,
// the check a caller should make before attempting signal.Notify on
// the same signal itself.
func (g *SignalGuard) IsReserved(sig os.Signal) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.reserved[sig]
	return ok
}

package intercept

import (
	"os"
	"syscall"
	"testing"

	"github.com/momentics/jumbomem/api"
)

func TestSignalGuardRejectsDoubleReservation(t *testing.T) {
	g := NewSignalGuard()
	ch := make(chan os.Signal, 1)
	if err := g.Reserve(syscall.SIGUSR1, ch); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := g.Reserve(syscall.SIGUSR1, ch); err != api.ErrSignalAlreadyReserved {
		t.Fatalf("expected ErrSignalAlreadyReserved, got %v", err)
	}
	if !g.IsReserved(syscall.SIGUSR1) {
		t.Fatal("expected signal to still be reserved")
	}
	g.Release(syscall.SIGUSR1)
	if g.IsReserved(syscall.SIGUSR1) {
		t.Fatal("expected signal to be released")
	}
}

package threadstate

import (
	"testing"
	"time"

	"github.com/momentics/jumbomem/api"
)

func TestRegisterTracksThreadCount(t *testing.T) {
	c := New()
	c.Register(false)
	c.Register(true)
	if c.Len() != 2 {
		t.Fatalf("expected 2 registered threads, got %d", c.Len())
	}
}

func TestLockAsIsReentrant(t *testing.T) {
	c := New()
	rec := c.Register(false)
	c.LockAs(rec)
	done := make(chan struct{})
	go func() {
		c.LockAs(rec) // same owner, must not deadlock
		c.UnlockAs(rec)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant LockAs deadlocked")
	}
	c.UnlockAs(rec)
}

func TestFreezeHonorsProbe(t *testing.T) {
	c := New()
	slow := c.Register(false)
	fast := c.Register(false)
	c.Register(true) // internal threads are never frozen

	c.FreezeProbe = func(r *api.ThreadRecord) bool {
		return r.TransportID != slow.TransportID
	}
	timedOut := c.Freeze()
	if len(timedOut) != 1 || timedOut[0].TransportID != slow.TransportID {
		t.Fatalf("expected only the slow thread to time out, got %+v", timedOut)
	}
	_ = fast
}

package pagereplace

import (
	"testing"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/pagetable"
)

func TestNRENeverEvictsJustAdmitted(t *testing.T) {
	tbl := pagetable.New(3)
	n := NewNRE(3, 2, 64)

	for _, idx := range []api.PageIndex{1, 2, 3} {
		d, _ := n.Fault(tbl, idx)
		_ = tbl.Insert(idx, d.Payload)
	}

	faulting := api.PageIndex(10)
	for round := 0; round < 5; round++ {
		priorAdmitted := n.lastAdmitted
		d, err := n.Fault(tbl, faulting)
		if err != nil {
			t.Fatalf("fault: %v", err)
		}
		if !d.HasVictim {
			t.Fatalf("expected a victim at capacity")
		}
		if d.Victim == priorAdmitted {
			t.Fatalf("evicted the page admitted the previous round (%d)", priorAdmitted)
		}
		_ = tbl.Delete(d.Victim)
		_ = tbl.Insert(faulting, d.Payload)
		faulting++
	}
}

func TestNREHistoryBounded(t *testing.T) {
	n := NewNRE(4, 2, 8)
	n.remember(1)
	n.remember(2)
	n.remember(3)
	if n.history.Length() != 2 {
		t.Fatalf("expected history capped at 2 entries, got %d", n.history.Length())
	}
	if n.inHistory(1) {
		t.Fatal("expected oldest entry evicted from history")
	}
	if !n.inHistory(2) || !n.inHistory(3) {
		t.Fatal("expected the two most recent entries retained")
	}
}

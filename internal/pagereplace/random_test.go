package pagereplace

import (
	"testing"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/pagetable"
)

func TestRandomNeverEvictsJustAdmitted(t *testing.T) {
	tbl := pagetable.New(4)
	r := NewRandom(4)

	for _, idx := range []api.PageIndex{1, 2, 3, 4} {
		d, _ := r.Fault(tbl, idx)
		_ = tbl.Insert(idx, d.Payload)
	}

	for i := 0; i < 200; i++ {
		faulting := api.PageIndex(100 + i)
		priorAdmitted := r.lastAdmitted
		d, err := r.Fault(tbl, faulting)
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
	}
}

func TestRandomSingleResidentEvictsItself(t *testing.T) {
	tbl := pagetable.New(1)
	r := NewRandom(1)
	d, _ := r.Fault(tbl, 7)
	_ = tbl.Insert(7, d.Payload)

	d2, err := r.Fault(tbl, 8)
	if err != nil {
		t.Fatalf("fault: %v", err)
	}
	if !d2.HasVictim || d2.Victim != 7 {
		t.Fatalf("expected the sole resident page evicted, got %v", d2.Victim)
	}
}

package pagereplace

import (
	"testing"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/pagetable"
)

func TestFIFOEvictsInAdmissionOrder(t *testing.T) {
	tbl := pagetable.New(3)
	f := NewFIFO(3)

	for _, idx := range []api.PageIndex{1, 2, 3} {
		d, err := f.Fault(tbl, idx)
		if err != nil {
			t.Fatalf("fault %d: %v", idx, err)
		}
		if d.HasVictim {
			t.Fatalf("unexpected victim while cache not full, admitting %d", idx)
		}
		if err := tbl.Insert(idx, d.Payload); err != nil {
			t.Fatalf("insert %d: %v", idx, err)
		}
	}

	d, err := f.Fault(tbl, 4)
	if err != nil {
		t.Fatalf("fault 4: %v", err)
	}
	if !d.HasVictim || d.Victim != 1 {
		t.Fatalf("expected page 1 (oldest) evicted, got victim=%v has=%v", d.Victim, d.HasVictim)
	}
	_ = tbl.Delete(d.Victim)
	_ = tbl.Insert(4, d.Payload)

	d2, err := f.Fault(tbl, 5)
	if err != nil {
		t.Fatalf("fault 5: %v", err)
	}
	if !d2.HasVictim || d2.Victim != 2 {
		t.Fatalf("expected page 2 evicted next, got %v", d2.Victim)
	}
}

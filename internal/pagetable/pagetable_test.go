package pagetable

import (
	"testing"

	"github.com/momentics/jumbomem/api"
)

func TestInsertFindDelete(t *testing.T) {
	tbl := New(4)
	if err := tbl.Insert(10, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok := tbl.Find(10); !ok {
		t.Fatal("expected page 10 resident")
	}
	if err := tbl.Delete(10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := tbl.Find(10); ok {
		t.Fatal("expected page 10 evicted")
	}
}

func TestDoubleDeleteAborts(t *testing.T) {
	tbl := New(4)
	_ = tbl.Insert(1, nil)
	if err := tbl.Delete(1); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := tbl.Delete(2); err == nil {
		t.Fatal("expected error on second delete without intervening insert")
	}
}

func TestDeleteAbsentAborts(t *testing.T) {
	tbl := New(4)
	if err := tbl.Delete(99); err == nil {
		t.Fatal("expected error deleting absent key")
	}
}

func TestCapacityOverflow(t *testing.T) {
	tbl := New(2)
	_ = tbl.Insert(1, nil)
	_ = tbl.Insert(2, nil)
	if err := tbl.Insert(3, nil); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestAtRankCoversAllResident(t *testing.T) {
	tbl := New(8)
	want := map[api.PageIndex]bool{}
	for _, idx := range []api.PageIndex{5, 9, 20, 21} {
		if err := tbl.Insert(idx, nil); err != nil {
			t.Fatalf("insert %d: %v", idx, err)
		}
		want[idx] = true
	}
	seen := map[api.PageIndex]bool{}
	for r := 0; r < tbl.Len(); r++ {
		res, ok := tbl.AtRank(r)
		if !ok {
			t.Fatalf("rank %d missing", r)
		}
		seen[res.Index] = true
	}
	if len(seen) != len(want) {
		t.Fatalf("at_rank coverage mismatch: got %v want %v", seen, want)
	}
	for idx := range want {
		if !seen[idx] {
			t.Fatalf("page %d missing from at_rank enumeration", idx)
		}
	}
}

func TestDeleteReuseSlotThenInsert(t *testing.T) {
	tbl := New(2)
	_ = tbl.Insert(1, nil)
	_ = tbl.Insert(2, nil)
	if err := tbl.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := tbl.Insert(3, nil); err != nil {
		t.Fatalf("reuse insert: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 resident pages, got %d", tbl.Len())
	}
}

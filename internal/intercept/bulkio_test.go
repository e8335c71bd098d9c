package intercept

import "testing"

func TestChunkPlannerGrowsOnConsecutiveSuccess(t *testing.T) {
	p := NewChunkPlanner(4096, 64, 4096)
	remaining := uint64(1 << 30)

	var last uint64
	for i := 0; i < maxConsecutive+1; i++ {
		size, ok := p.Next(remaining)
		if !ok {
			t.Fatalf("iteration %d: planner gave up", i)
		}
		p.Report(size, true)
		last = size
	}
	if last < uint64(4096) {
		t.Fatalf("expected chunk size to grow past the OS page size, got %d", last)
	}
}

func TestChunkPlannerShrinksOnConsecutiveFailure(t *testing.T) {
	p := NewChunkPlanner(4096, 64, 4096)
	remaining := uint64(1 << 20)

	size, ok := p.Next(remaining)
	if !ok {
		t.Fatal("planner gave up on first chunk")
	}
	for i := 0; i < maxConsecutive; i++ {
		p.Report(size, false)
	}
	next, ok := p.Next(remaining / 2)
	if !ok {
		t.Fatal("planner gave up after shrinking")
	}
	if next >= size {
		t.Fatalf("expected shrunk chunk size < %d, got %d", size, next)
	}
}

func TestChunkPlannerGivesUpBelowOnePage(t *testing.T) {
	p := NewChunkPlanner(4096, 1, 4096)
	// Force unsuccessful down to <= osPageSize to trigger give-up.
	for i := 0; i < maxConsecutive; i++ {
		p.Report(0, false)
	}
	if _, ok := p.Next(2048); ok {
		t.Fatal("expected planner to give up once unsuccessful bound collapses to a single page")
	}
}

package sysinfo

import "testing"

func TestReserveMemoryAbsoluteTakesPriority(t *testing.T) {
	got := ReserveMemory(1000, 200, 50)
	if got != 800 {
		t.Fatalf("expected absolute reservation to apply, got %d", got)
	}
}

func TestReserveMemoryPercentage(t *testing.T) {
	got := ReserveMemory(1000, 0, 25)
	if got != 750 {
		t.Fatalf("expected a 25%% reduction, got %d", got)
	}
}

func TestReserveMemoryAbsoluteExceedsAvailable(t *testing.T) {
	if got := ReserveMemory(100, 500, 0); got != 0 {
		t.Fatalf("expected 0 when the absolute reservation exceeds availability, got %d", got)
	}
}

func TestReserveMemoryNoReservation(t *testing.T) {
	if got := ReserveMemory(1000, 0, 0); got != 1000 {
		t.Fatalf("expected unreduced availability, got %d", got)
	}
}

func TestReduceForFaultsZeroCandidate(t *testing.T) {
	got, err := ReduceForFaults(0, 4096)
	if err != nil {
		t.Fatalf("ReduceForFaults: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 for a zero candidate, got %d", got)
	}
}

func TestReduceForFaultsReturnsCandidateWhenFaultCounterUnavailable(t *testing.T) {
	// On any platform this still exercises the "no fault counter" path
	// deterministically whenever MajorFaults itself is unsupported;
	// where it is supported the touch passes normally observe zero new
	// faults for a small, already-resident buffer, so the candidate is
	// likewise returned unreduced either way.
	const candidate = 64 * 1024
	got, err := ReduceForFaults(candidate, 4096)
	if err != nil {
		t.Fatalf("ReduceForFaults: %v", err)
	}
	if got != candidate {
		t.Fatalf("expected candidate %d returned unreduced, got %d", candidate, got)
	}
}

package region

import (
	"testing"

	"github.com/momentics/jumbomem/api"
)

func TestRoundRobinCyclesPeers(t *testing.T) {
	rr := RoundRobin{NumPeers: 3, PageSize: 4096}
	for page, want := range map[api.PageIndex]int{0: 0, 1: 1, 2: 2, 3: 0, 4: 1} {
		got := rr.Place(page).Holder
		if got != want {
			t.Fatalf("page %d: got holder %d, want %d", page, got, want)
		}
	}
}

func TestBlockKeepsRunsTogether(t *testing.T) {
	b := Block{NumPeers: 2, PageSize: 4096, PagesPerPeer: 4}
	for page, want := range map[api.PageIndex]int{0: 0, 3: 0, 4: 1, 7: 1} {
		got := b.Place(page).Holder
		if got != want {
			t.Fatalf("page %d: got holder %d, want %d", page, got, want)
		}
	}
}

func TestBlockClampsOverflowToLastPeer(t *testing.T) {
	b := Block{NumPeers: 2, PageSize: 4096, PagesPerPeer: 4}
	if got := b.Place(999).Holder; got != 1 {
		t.Fatalf("expected overflow page clamped to last peer, got %d", got)
	}
}

package engine

import (
	"testing"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/config"
)

func TestNewWiresDefaultFIFOPolicy(t *testing.T) {
	cfg := Config{
		Base:       0,
		PageSize:   16,
		LocalPages: 4,
		Extent:     16 * 4,
		Policy:     "fifo",
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if e.policy.Name() != "fifo" {
		t.Fatalf("expected fifo policy, got %s", e.policy.Name())
	}
	if e.Region().PageSize() != 16 {
		t.Fatalf("expected page size 16, got %d", e.Region().PageSize())
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	cfg := Config{PageSize: 16, LocalPages: 4, Extent: 64, Policy: "bogus"}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error for an unknown policy name")
	}
}

func TestDomainRejectsForeignInternalAddress(t *testing.T) {
	cfg := Config{Base: 0, PageSize: 16, LocalPages: 4, Extent: 64, Policy: "fifo"}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := e.Domain().CheckOwnership(api.Addr(1000000), true); err == nil {
		t.Fatal("expected ownership violation for an address far outside any domain")
	}
}

func TestFromStoreParsesPrefetchMode(t *testing.T) {
	s := config.New()
	s.Set(map[string]string{config.Prefetch: "delta"})
	cfg := FromStore(s, []string{"peer1:7000"})
	if cfg.Prefetch != api.PrefetchDelta {
		t.Fatalf("expected PrefetchDelta, got %v", cfg.Prefetch)
	}
}

func TestFromStoreDefaultsPrefetchToNone(t *testing.T) {
	s := config.New()
	cfg := FromStore(s, []string{"peer1:7000"})
	if cfg.Prefetch != api.PrefetchNone {
		t.Fatalf("expected PrefetchNone by default, got %v", cfg.Prefetch)
	}
}

func TestFromStoreParsesSignedRelativeBaseAddr(t *testing.T) {
	s := config.New()
	s.Set(map[string]string{config.BaseAddr: "+0x2000"})
	cfg := FromStore(s, []string{"peer1:7000"})
	if cfg.Base != api.Addr(0x2000) {
		t.Fatalf("expected base 0x2000, got %#x", cfg.Base)
	}
}

func TestFromStoreParsesAbsoluteBaseAddr(t *testing.T) {
	s := config.New()
	s.Set(map[string]string{config.BaseAddr: "65536"})
	cfg := FromStore(s, []string{"peer1:7000"})
	if cfg.Base != api.Addr(65536) {
		t.Fatalf("expected base 65536, got %d", cfg.Base)
	}
}

func TestFromStoreClampsNegativeRelativeBaseAddrToZero(t *testing.T) {
	s := config.New()
	s.Set(map[string]string{config.BaseAddr: "-4096"})
	cfg := FromStore(s, []string{"peer1:7000"})
	if cfg.Base != 0 {
		t.Fatalf("expected a negative relative delta to clamp to 0, got %d", cfg.Base)
	}
}

func TestFromStoreParsesLocalPagesPercentage(t *testing.T) {
	peers := []string{"peer1:7000", "peer2:7001"}
	full := FromStore(config.New(), peers)

	s := config.New()
	s.Set(map[string]string{config.LocalPages: "50%"})
	half := FromStore(s, peers)

	if half.LocalPages != full.LocalPages/2 {
		t.Fatalf("expected half of %d local pages, got %d", full.LocalPages, half.LocalPages)
	}
}

func TestFromStoreReadsMlockAndReduceMem(t *testing.T) {
	s := config.New()
	s.Set(map[string]string{config.Mlock: "true", config.ReduceMem: "true"})
	cfg := FromStore(s, []string{"peer1:7000"})
	if !cfg.Mlock {
		t.Fatal("expected Mlock true")
	}
	if !cfg.ReduceMem {
		t.Fatal("expected ReduceMem true")
	}
}

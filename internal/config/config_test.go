package config

import "testing"

func TestPercentParsesSuffixedValues(t *testing.T) {
	s := New()
	s.Set(map[string]string{LocalPages: "50%"})
	frac, ok := s.Percent(LocalPages)
	if !ok || frac != 0.5 {
		t.Fatalf("expected 0.5, true; got %v, %v", frac, ok)
	}
}

func TestPercentRejectsPlainIntegers(t *testing.T) {
	s := New()
	s.Set(map[string]string{LocalPages: "1024"})
	if _, ok := s.Percent(LocalPages); ok {
		t.Fatal("expected a bare integer to not parse as a percentage")
	}
}

func TestReserveSplitPrefersAbsolute(t *testing.T) {
	s := New()
	s.Set(map[string]string{ReserveMem: "4096"})
	abs, pct := s.ReserveSplit(ReserveMem)
	if abs != 4096 || pct != 0 {
		t.Fatalf("expected (4096, 0), got (%d, %v)", abs, pct)
	}
}

func TestReserveSplitParsesPercentage(t *testing.T) {
	s := New()
	s.Set(map[string]string{ReserveMem: "10%"})
	abs, pct := s.ReserveSplit(ReserveMem)
	if abs != 0 || pct != 10 {
		t.Fatalf("expected (0, 10), got (%d, %v)", abs, pct)
	}
}

func TestSignedDeltaParsesRelativeAndAbsolute(t *testing.T) {
	if delta, absolute, ok := SignedDelta("+0x1000"); !ok || absolute || delta != 0x1000 {
		t.Fatalf("relative +0x1000: delta=%d absolute=%v ok=%v", delta, absolute, ok)
	}
	if delta, absolute, ok := SignedDelta("-4096"); !ok || absolute || delta != -4096 {
		t.Fatalf("relative -4096: delta=%d absolute=%v ok=%v", delta, absolute, ok)
	}
	if delta, absolute, ok := SignedDelta("65536"); !ok || !absolute || delta != 65536 {
		t.Fatalf("absolute 65536: delta=%d absolute=%v ok=%v", delta, absolute, ok)
	}
	if _, _, ok := SignedDelta(""); ok {
		t.Fatal("expected an empty string to fail to parse")
	}
}

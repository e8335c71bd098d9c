package threadstate

import (
	"testing"
	"time"
)

func TestHeartbeatReporterInvokesLog(t *testing.T) {
	reg := NewMetricsRegistry()
	reg.Set("faults", 42)

	got := make(chan map[string]any, 1)
	h := NewHeartbeatReporter(reg, 10*time.Millisecond, func(snap map[string]any) {
		select {
		case got <- snap:
		default:
		}
	})
	h.Start()
	defer h.Stop()

	select {
	case snap := <-got:
		if snap["faults"] != 42 {
			t.Fatalf("expected faults=42 in snapshot, got %v", snap["faults"])
		}
	case <-time.After(time.Second):
		t.Fatal("heartbeat never logged")
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	before := testutil.ToFloat64(MonitorSkippedTicks)
	MonitorSkippedTicks.Inc()
	if got := testutil.ToFloat64(MonitorSkippedTicks); got != before+1 {
		t.Fatalf("want %v, got %v", before+1, got)
	}

	n, err := testutil.GatherAndCount(reg, "isitdown_monitor_skipped_ticks_total")
	if err != nil || n != 1 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}

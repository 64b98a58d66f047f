package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRunDisabledIsNoOp(t *testing.T) {
	enabled.Store(false)
	before := testutil.ToFloat64(runsTotal.WithLabelValues("pass"))
	ObserveRun(123, true)
	after := testutil.ToFloat64(runsTotal.WithLabelValues("pass"))
	if after != before {
		t.Fatalf("disabled telemetry still counted runs: %v -> %v", before, after)
	}
}

func TestObserveRunCountsOutcomes(t *testing.T) {
	if err := Enable(Config{Enabled: true}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer enabled.Store(false)

	pass0 := testutil.ToFloat64(runsTotal.WithLabelValues("pass"))
	fail0 := testutil.ToFloat64(runsTotal.WithLabelValues("fail"))

	ObserveRun(42.5, true)
	ObserveRun(0, false)
	ObserveRun(17.25, true)

	if got := testutil.ToFloat64(runsTotal.WithLabelValues("pass")); got != pass0+2 {
		t.Errorf("pass count = %v, want %v", got, pass0+2)
	}
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("fail")); got != fail0+1 {
		t.Errorf("fail count = %v, want %v", got, fail0+1)
	}
	if got := testutil.ToFloat64(lastLatencyUS); got != 17.25 {
		t.Errorf("last latency gauge = %v, want 17.25", got)
	}
}

func TestEnableDisabledConfig(t *testing.T) {
	enabled.Store(false)
	if err := Enable(Config{Enabled: false}); err != nil {
		t.Fatalf("Enable with disabled config: %v", err)
	}
	if enabled.Load() {
		t.Fatal("disabled config must not enable telemetry")
	}
}

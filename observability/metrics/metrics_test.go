package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHookMetricsRecord(t *testing.T) {
	m := Hooks()
	m.RecordSettlement("compound", "converted", big.NewInt(100), big.NewInt(50))
	m.RecordRejection("repeat_hook")
	m.RecordSelection("raffle", 3, true)

	if got := testutil.ToFloat64(m.settlements.WithLabelValues("compound", "converted")); got < 1 {
		t.Fatalf("expected settlement counter to increase, got %v", got)
	}
	if got := testutil.ToFloat64(m.feesCollected.WithLabelValues("compound", "reward")); got < 50 {
		t.Fatalf("expected reward fees recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.claimsRejected.WithLabelValues("repeat_hook")); got < 1 {
		t.Fatalf("expected rejection recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.selectionFallback.WithLabelValues("raffle")); got < 1 {
		t.Fatalf("expected fallback recorded, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var hooks *HookMetrics
	hooks.RecordSettlement("x", "y", big.NewInt(1), nil)
	hooks.RecordRejection("")
	hooks.RecordSelection("", 0, false)
	var claimer *ClaimerMetrics
	claimer.RecordBatch("", 0, 0, nil, nil, nil)
}

func TestClaimerMetricsRecordBatch(t *testing.T) {
	m := Claimer()
	m.RecordBatch("fallback", 2, 1, big.NewInt(5e17), big.NewInt(10), nil)
	if got := testutil.ToFloat64(m.items.WithLabelValues("fallback", "failed")); got < 1 {
		t.Fatalf("expected failed items recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastRate.WithLabelValues("fallback")); got != 5e17 {
		t.Fatalf("unexpected rate gauge %v", got)
	}
}

type namedEvent string

func (e namedEvent) EventType() string { return string(e) }

func TestEventMetricsCountsByType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.emitted.WithLabelValues("hooks.prize.settled"))
	m.Emit(namedEvent(" Hooks.Prize.Settled "))
	m.Emit(nil)
	if got := testutil.ToFloat64(m.emitted.WithLabelValues("hooks.prize.settled")); got != before+1 {
		t.Fatalf("expected one more settled event, got %v", got)
	}
	if got := testutil.ToFloat64(m.emitted.WithLabelValues("unknown")); got != 0 {
		t.Fatalf("nil events must not be counted, got %v", got)
	}
}

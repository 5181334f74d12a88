package metrics

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// HookMetrics tracks prize hook settlements, claim rejections and selection
// outcomes.
type HookMetrics struct {
	settlements       *prometheus.CounterVec
	feesCollected     *prometheus.CounterVec
	claimsRejected    *prometheus.CounterVec
	selectionAttempts *prometheus.HistogramVec
	selectionFallback *prometheus.CounterVec
}

var (
	hookOnce     sync.Once
	hookRegistry *HookMetrics
)

// Hooks returns the lazily registered hook metrics.
func Hooks() *HookMetrics {
	hookOnce.Do(func() {
		hookRegistry = &HookMetrics{
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "hook",
				Name:      "settlements_total",
				Help:      "Settled prizes by hook and payout mode.",
			}, []string{"hook", "mode"}),
			feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "hook",
				Name:      "fees_total",
				Help:      "Fee amounts taken by hook and component.",
			}, []string{"hook", "component"}),
			claimsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "vault",
				Name:      "claims_rejected_total",
				Help:      "Aborted claims by rejection reason.",
			}, []string{"reason"}),
			selectionAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "pthooks",
				Subsystem: "selection",
				Name:      "attempts",
				Help:      "Pick attempts needed to resolve a randomized recipient.",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			}, []string{"hook"}),
			selectionFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "selection",
				Name:      "fallbacks_total",
				Help:      "Selections that exhausted their budget and used the fallback recipient.",
			}, []string{"hook"}),
		}
		prometheus.MustRegister(
			hookRegistry.settlements,
			hookRegistry.feesCollected,
			hookRegistry.claimsRejected,
			hookRegistry.selectionAttempts,
			hookRegistry.selectionFallback,
		)
	})
	return hookRegistry
}

func (m *HookMetrics) RecordSettlement(hook, mode string, fee, reward *big.Int) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(label(hook), label(mode)).Inc()
	if fee != nil && fee.Sign() > 0 {
		m.feesCollected.WithLabelValues(label(hook), "total").Add(bigToFloat(fee))
	}
	if reward != nil && reward.Sign() > 0 {
		m.feesCollected.WithLabelValues(label(hook), "reward").Add(bigToFloat(reward))
	}
}

func (m *HookMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.claimsRejected.WithLabelValues(label(reason)).Inc()
}

func (m *HookMetrics) RecordSelection(hook string, attempts uint64, fallback bool) {
	if m == nil {
		return
	}
	m.selectionAttempts.WithLabelValues(label(hook)).Observe(float64(attempts))
	if fallback {
		m.selectionFallback.WithLabelValues(label(hook)).Inc()
	}
}

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}

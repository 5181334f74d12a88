package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ClaimerMetrics tracks batch claim runs.
type ClaimerMetrics struct {
	items      *prometheus.CounterVec
	rewards    prometheus.Counter
	reinvested prometheus.Counter
	lastRate   *prometheus.GaugeVec
}

var (
	claimerOnce     sync.Once
	claimerRegistry *ClaimerMetrics
)

// Claimer returns the lazily registered batch claimer metrics.
func Claimer() *ClaimerMetrics {
	claimerOnce.Do(func() {
		claimerRegistry = &ClaimerMetrics{
			items: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "claimer",
				Name:      "items_total",
				Help:      "Batch claim items by mode and outcome.",
			}, []string{"mode", "outcome"}),
			rewards: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "claimer",
				Name:      "rewards_total",
				Help:      "Aggregate reward paid for successful claims.",
			}),
			reinvested: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pthooks",
				Subsystem: "claimer",
				Name:      "reinvested_total",
				Help:      "Reward value reinvested into the vault in normal mode.",
			}),
			lastRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "pthooks",
				Subsystem: "claimer",
				Name:      "reward_rate_wad",
				Help:      "Reward rate applied by the most recent batch, scaled by 1e18.",
			}, []string{"mode"}),
		}
		prometheus.MustRegister(
			claimerRegistry.items,
			claimerRegistry.rewards,
			claimerRegistry.reinvested,
			claimerRegistry.lastRate,
		)
	})
	return claimerRegistry
}

func (m *ClaimerMetrics) RecordBatch(mode string, claimed, failed uint64, rate, reward, reinvested *big.Int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(label(mode), "claimed").Add(float64(claimed))
	m.items.WithLabelValues(label(mode), "failed").Add(float64(failed))
	if reward != nil && reward.Sign() > 0 {
		m.rewards.Add(bigToFloat(reward))
	}
	if reinvested != nil && reinvested.Sign() > 0 {
		m.reinvested.Add(bigToFloat(reinvested))
	}
	m.lastRate.WithLabelValues(label(mode)).Set(bigToFloat(rate))
}

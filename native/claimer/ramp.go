package claimer

import (
	"errors"
	"fmt"
	"math/big"

	"pthooks/native/fees"
)

// Mode is the claim strategy chosen for a tier.
type Mode string

const (
	// ModeCanary claims canary-tier prizes immediately for the full canary
	// reward.
	ModeCanary Mode = "canary"
	// ModeNormal takes no direct reward; the claimer's cut is reinvested
	// into the vault for the reward recipient.
	ModeNormal Mode = "normal"
	// ModeFallback pays a reward ramping linearly from MinRate to MaxRate
	// over the rest of the period.
	ModeFallback Mode = "fallback"
)

var (
	ErrInvalidThreshold = errors.New("claimer: threshold must be within (0, 10000) bps")
	ErrInvalidRamp      = errors.New("claimer: min rate exceeds max rate")
	ErrInvalidPeriod    = errors.New("claimer: draw period must be positive")
)

// Ramp configures the time-based reward schedule of a claim period.
type Ramp struct {
	// ThresholdBps is the fraction of the period, in basis points, during
	// which normal mode applies.
	ThresholdBps uint32    `toml:"threshold_bps"`
	MinRate      fees.Rate `toml:"min_rate"`
	MaxRate      fees.Rate `toml:"max_rate"`
	CanaryRate   fees.Rate `toml:"canary_rate"`
}

// DefaultRamp switches to fallback after 75% of the period and ramps the
// reward from 0.1% to 10% of the prize. Canary prizes are paid in full.
func DefaultRamp() Ramp {
	return Ramp{
		ThresholdBps: 7_500,
		MinRate:      fees.Bps(10),
		MaxRate:      fees.Bps(1_000),
		CanaryRate:   fees.Rate{Numerator: 1, Denominator: 1},
	}
}

// Validate checks threshold bounds and rate ordering.
func (r Ramp) Validate() error {
	if r.ThresholdBps == 0 || r.ThresholdBps >= fees.BpsDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, r.ThresholdBps)
	}
	for name, rate := range map[string]fees.Rate{"min_rate": r.MinRate, "max_rate": r.MaxRate, "canary_rate": r.CanaryRate} {
		if err := rate.Validate(); err != nil {
			return fmt.Errorf("claimer: %s: %w", name, err)
		}
	}
	if r.MinRate.Cmp(r.MaxRate) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRamp, r.MinRate, r.MaxRate)
	}
	return nil
}

// Decision is the outcome of Ramp.Decide.
type Decision struct {
	Mode      Mode
	Rate      fees.Rate
	Elapsed   int64
	Threshold int64
	Period    int64
}

// Reinvest reports whether the reward is reinvested instead of paid out.
func (d Decision) Reinvest() bool { return d.Mode == ModeNormal }

// Reward returns the reward claimed on a prize of the given size.
func (d Decision) Reward(prizeSize *big.Int) *big.Int {
	return d.Rate.Apply(prizeSize)
}

// RateWad returns the decision's rate scaled by 1e18.
func (d Decision) RateWad() *big.Int { return toWad(d.Rate) }

func toWad(rate fees.Rate) *big.Int {
	if rate.Denominator == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(new(big.Int).SetUint64(rate.Numerator), big.NewInt(fees.WadDenominator))
	return out.Quo(out, new(big.Int).SetUint64(rate.Denominator))
}

func fromWad(wad *big.Int) fees.Rate {
	return fees.Rate{Numerator: wad.Uint64(), Denominator: fees.WadDenominator}
}

// Decide picks the claim mode for a tier given the seconds elapsed since the
// draw closed. In fallback mode the rate is
//
//	min + (max - min) * (elapsed - threshold) / (period - threshold)
//
// computed on WAD fixed point with truncation and clamped to max.
func (r Ramp) Decide(canary bool, elapsed, period int64) (Decision, error) {
	if period <= 0 {
		return Decision{}, ErrInvalidPeriod
	}
	if elapsed < 0 {
		elapsed = 0
	}
	threshold := period * int64(r.ThresholdBps) / fees.BpsDenominator
	d := Decision{Elapsed: elapsed, Threshold: threshold, Period: period}
	switch {
	case canary:
		d.Mode = ModeCanary
		d.Rate = r.CanaryRate
	case elapsed < threshold:
		d.Mode = ModeNormal
		d.Rate = r.MinRate
	default:
		d.Mode = ModeFallback
		minWad, maxWad := toWad(r.MinRate), toWad(r.MaxRate)
		if elapsed >= period || threshold >= period {
			d.Rate = fromWad(maxWad)
			break
		}
		span := new(big.Int).Sub(maxWad, minWad)
		span.Mul(span, big.NewInt(elapsed-threshold))
		span.Quo(span, big.NewInt(period-threshold))
		rate := span.Add(span, minWad)
		if rate.Cmp(maxWad) > 0 {
			rate = maxWad
		}
		d.Rate = fromWad(rate)
	}
	return d, nil
}

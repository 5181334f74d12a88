package claimer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pthooks/native/fees"
)

func TestRampModes(t *testing.T) {
	ramp := DefaultRamp()
	require.NoError(t, ramp.Validate())
	const period = 100_000

	cases := []struct {
		name    string
		canary  bool
		elapsed int64
		mode    Mode
		wad     string
	}{
		{"canary", true, 99_999, ModeCanary, "1000000000000000000"},
		{"before close", false, -50, ModeNormal, "1000000000000000"},
		{"normal", false, 74_999, ModeNormal, "1000000000000000"},
		{"threshold", false, 75_000, ModeFallback, "1000000000000000"},
		{"midway", false, 87_500, ModeFallback, "50500000000000000"},
		{"end", false, 100_000, ModeFallback, "100000000000000000"},
		{"late", false, 250_000, ModeFallback, "100000000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ramp.Decide(tc.canary, tc.elapsed, period)
			require.NoError(t, err)
			require.Equal(t, tc.mode, d.Mode)
			require.Equal(t, tc.wad, d.RateWad().String())
			require.Equal(t, int64(75_000), d.Threshold)
		})
	}
}

func TestRampIsMonotonicAndBounded(t *testing.T) {
	ramp := DefaultRamp()
	const period = 86_400
	prev, err := ramp.Decide(false, 0, period)
	require.NoError(t, err)
	for elapsed := int64(0); elapsed <= 2*period; elapsed += 997 {
		d, err := ramp.Decide(false, elapsed, period)
		require.NoError(t, err)
		require.LessOrEqual(t, d.Rate.Cmp(ramp.MaxRate), 0)
		require.GreaterOrEqual(t, d.Rate.Cmp(ramp.MinRate), 0)
		require.GreaterOrEqual(t, d.Rate.Cmp(prev.Rate), 0, "elapsed %d", elapsed)
		prev = d
	}
}

func TestRampValidation(t *testing.T) {
	bad := DefaultRamp()
	bad.ThresholdBps = 0
	require.ErrorIs(t, bad.Validate(), ErrInvalidThreshold)
	bad.ThresholdBps = 10_000
	require.ErrorIs(t, bad.Validate(), ErrInvalidThreshold)

	inverted := DefaultRamp()
	inverted.MinRate, inverted.MaxRate = inverted.MaxRate, inverted.MinRate
	require.ErrorIs(t, inverted.Validate(), ErrInvalidRamp)

	above := DefaultRamp()
	above.MaxRate = fees.Rate{Numerator: 3, Denominator: 2}
	require.ErrorIs(t, above.Validate(), fees.ErrRateAboveOne)

	_, err := DefaultRamp().Decide(false, 10, 0)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestRampDecodesFromTOMLRates(t *testing.T) {
	var r Ramp
	r.ThresholdBps = 5_000
	require.NoError(t, r.MinRate.UnmarshalText([]byte("0.1%")))
	require.NoError(t, r.MaxRate.UnmarshalText([]byte("0.05")))
	require.NoError(t, r.CanaryRate.UnmarshalText([]byte("1/1")))
	require.NoError(t, r.Validate())
	d, err := r.Decide(false, 100, 100)
	require.NoError(t, err)
	require.Equal(t, "50000000000000000", d.RateWad().String())
}

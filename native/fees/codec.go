package fees

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// WadDenominator is the 18-decimal fixed-point denominator.
const WadDenominator = 1_000_000_000_000_000_000

// ParseRate decodes the textual rate forms accepted in configuration files:
// "50bps", "0.5%", "1/3" and plain decimal fractions such as "0.25". Decimal
// and percent forms are converted to an exact WAD ratio.
func ParseRate(raw string) (Rate, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return Rate{}, fmt.Errorf("fees: empty rate")
	}
	var rate Rate
	switch {
	case strings.HasSuffix(text, "bps"):
		n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(text, "bps")), 10, 32)
		if err != nil {
			return Rate{}, fmt.Errorf("fees: parse bps %q: %w", raw, err)
		}
		rate = Bps(uint32(n))
	case strings.Contains(text, "/"):
		parts := strings.SplitN(text, "/", 2)
		num, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return Rate{}, fmt.Errorf("fees: parse numerator %q: %w", raw, err)
		}
		den, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return Rate{}, fmt.Errorf("fees: parse denominator %q: %w", raw, err)
		}
		rate = Rate{Numerator: num, Denominator: den}
	case strings.HasSuffix(text, "%"):
		wad, err := decimalToWad(strings.TrimSuffix(text, "%"))
		if err != nil {
			return Rate{}, fmt.Errorf("fees: parse percent %q: %w", raw, err)
		}
		rate = Rate{Numerator: wad / 100, Denominator: WadDenominator}
	default:
		wad, err := decimalToWad(text)
		if err != nil {
			return Rate{}, fmt.Errorf("fees: parse decimal %q: %w", raw, err)
		}
		rate = Rate{Numerator: wad, Denominator: WadDenominator}
	}
	if err := rate.Validate(); err != nil {
		return Rate{}, err
	}
	return rate, nil
}

func decimalToWad(text string) (uint64, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(text))
	if !ok || r.Sign() < 0 {
		return 0, fmt.Errorf("invalid decimal")
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetUint64(WadDenominator))
	if !scaled.IsInt() {
		return 0, fmt.Errorf("more than 18 decimals")
	}
	n := scaled.Num()
	if !n.IsUint64() {
		return 0, fmt.Errorf("out of range")
	}
	return n.Uint64(), nil
}

// UnmarshalText lets rates be decoded directly from TOML and JSON strings.
func (r *Rate) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText renders the rate in its "num/den" form.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

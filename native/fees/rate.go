package fees

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// BpsDenominator is the denominator of basis-point fee rates.
	BpsDenominator = 10_000
	// MaxFeeBps caps the combined fee a settlement may withhold (1%).
	MaxFeeBps = 100
)

var (
	ErrZeroDenominator = errors.New("fees: zero denominator")
	ErrRateAboveOne    = errors.New("fees: rate numerator exceeds denominator")
	ErrFeeTooHigh      = errors.New("fees: combined fee exceeds cap")
)

// Rate is an integer ratio applied to amounts with truncation toward zero.
// It never promotes to floating point.
type Rate struct {
	Numerator   uint64
	Denominator uint64
}

// Bps returns a basis-point rate over BpsDenominator.
func Bps(bps uint32) Rate {
	return Rate{Numerator: uint64(bps), Denominator: BpsDenominator}
}

// Validate ensures the ratio is well formed and does not exceed one.
func (r Rate) Validate() error {
	if r.Denominator == 0 {
		return ErrZeroDenominator
	}
	if r.Numerator > r.Denominator {
		return ErrRateAboveOne
	}
	return nil
}

// IsZero reports whether applying the rate always yields zero.
func (r Rate) IsZero() bool {
	return r.Numerator == 0
}

// Apply returns floor(amount * numerator / denominator). Nil, negative or
// zero amounts yield zero. Amounts with amount*numerator < denominator
// truncate to zero; this is a documented precision loss.
func (r Rate) Apply(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 || r.Numerator == 0 || r.Denominator == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(r.Numerator))
	return out.Quo(out, new(big.Int).SetUint64(r.Denominator))
}

// Cmp compares two rates by value without rounding.
func (r Rate) Cmp(other Rate) int {
	left := new(big.Int).Mul(new(big.Int).SetUint64(r.Numerator), new(big.Int).SetUint64(other.Denominator))
	right := new(big.Int).Mul(new(big.Int).SetUint64(other.Numerator), new(big.Int).SetUint64(r.Denominator))
	return left.Cmp(right)
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

package fees

import (
	"fmt"
	"math/big"
)

// Schedule holds the fee components a settling hook withholds, in basis
// points. Every component is computed off the same gross amount; none is
// compounded on another.
type Schedule struct {
	RewardFeeBps    uint32 `toml:"reward_fee_bps" json:"rewardFeeBps"`
	LiquidityFeeBps uint32 `toml:"liquidity_fee_bps" json:"liquidityFeeBps"`
}

// NewSchedule validates the combined fee against MaxFeeBps.
func NewSchedule(rewardFeeBps, liquidityFeeBps uint32) (Schedule, error) {
	s := Schedule{RewardFeeBps: rewardFeeBps, LiquidityFeeBps: liquidityFeeBps}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Validate rejects schedules whose combined fee exceeds the cap.
func (s Schedule) Validate() error {
	if uint64(s.RewardFeeBps)+uint64(s.LiquidityFeeBps) > MaxFeeBps {
		return fmt.Errorf("%w: reward %d + liquidity %d > %d bps", ErrFeeTooHigh, s.RewardFeeBps, s.LiquidityFeeBps, MaxFeeBps)
	}
	return nil
}

// TotalBps returns the combined fee rate.
func (s Schedule) TotalBps() uint32 {
	return s.RewardFeeBps + s.LiquidityFeeBps
}

// CalculateFee returns the total fee withheld from amount.
func (s Schedule) CalculateFee(amount *big.Int) *big.Int {
	return Bps(s.TotalBps()).Apply(amount)
}

// CalculateReward returns the share of amount paid to the claimer.
func (s Schedule) CalculateReward(amount *big.Int) *big.Int {
	return Bps(s.RewardFeeBps).Apply(amount)
}

// Split summarises a settlement. Fee is computed from the combined rate, so
// Reward+Liquidity may be one unit below Fee because of truncation; the
// difference stays with the hook together with the liquidity share.
type Split struct {
	Gross     *big.Int
	Fee       *big.Int
	Reward    *big.Int
	Liquidity *big.Int
	Net       *big.Int
}

// Split computes every component of a settlement off the same gross amount.
func (s Schedule) Split(amount *big.Int) Split {
	gross := big.NewInt(0)
	if amount != nil && amount.Sign() > 0 {
		gross.Set(amount)
	}
	fee := s.CalculateFee(gross)
	return Split{
		Gross:     gross,
		Fee:       fee,
		Reward:    s.CalculateReward(gross),
		Liquidity: Bps(s.LiquidityFeeBps).Apply(gross),
		Net:       new(big.Int).Sub(gross, fee),
	}
}

// Retained is the portion of the fee the hook keeps after paying the reward.
func (sp Split) Retained() *big.Int {
	return new(big.Int).Sub(sp.Fee, sp.Reward)
}

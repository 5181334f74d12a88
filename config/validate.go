package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"pthooks/core/types"
	"pthooks/native/prizepool"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Validate checks the fee cap, addresses, ramp bounds and pool parameters.
func (c *Config) Validate() error {
	if err := c.Compound.Fees.Validate(); err != nil {
		return fmt.Errorf("%w: compound.fees: %v", ErrInvalidConfig, err)
	}
	if err := c.Claimer.Ramp.Validate(); err != nil {
		return fmt.Errorf("%w: claimer.ramp: %v", ErrInvalidConfig, err)
	}
	if c.Selection.Budget == 0 {
		return fmt.Errorf("%w: selection.Budget must be positive", ErrInvalidConfig)
	}
	for name, raw := range map[string]string{
		"pool.Address":     c.Pool.Address,
		"vault.Address":    c.Vault.Address,
		"trust.Owner":      c.Trust.Owner,
		"compound.Address": c.Compound.Address,
		"raffle.Address":   c.Raffle.Address,
		"claimer.Address":  c.Claimer.Address,
	} {
		if _, err := parseAddress(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	if _, err := c.TrustedVaults(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Pool.PrizeToken) == "" || strings.TrimSpace(c.Vault.ShareToken) == "" {
		return fmt.Errorf("%w: token symbols must be set", ErrInvalidConfig)
	}
	if _, err := c.PoolConfig(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"pool.Reserve":       c.Pool.Reserve,
		"compound.Liquidity": c.Compound.Liquidity,
	} {
		if _, err := parseAmount(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	if c.Raffle.TokenCount == 0 {
		return fmt.Errorf("%w: raffle.TokenCount must be positive", ErrInvalidConfig)
	}
	return nil
}

// PoolConfig converts the pool section into prize pool parameters.
func (c *Config) PoolConfig() (prizepool.Config, error) {
	addr, err := parseAddress(c.Pool.Address)
	if err != nil {
		return prizepool.Config{}, fmt.Errorf("%w: pool.Address: %v", ErrInvalidConfig, err)
	}
	if len(c.Pool.Tiers) == 0 {
		return prizepool.Config{}, fmt.Errorf("%w: pool.Tiers must not be empty", ErrInvalidConfig)
	}
	if int(c.Pool.CanaryTiers) > len(c.Pool.Tiers) {
		return prizepool.Config{}, fmt.Errorf("%w: pool.CanaryTiers exceeds tier count", ErrInvalidConfig)
	}
	if c.Pool.DrawPeriodSeconds <= 0 {
		return prizepool.Config{}, fmt.Errorf("%w: pool.DrawPeriodSeconds must be positive", ErrInvalidConfig)
	}
	tiers := make([]prizepool.Tier, len(c.Pool.Tiers))
	for i, tier := range c.Pool.Tiers {
		size, err := parseAmount(tier.PrizeSize)
		if err != nil {
			return prizepool.Config{}, fmt.Errorf("%w: pool.Tiers[%d].PrizeSize: %v", ErrInvalidConfig, i, err)
		}
		if tier.PrizeCount == 0 {
			return prizepool.Config{}, fmt.Errorf("%w: pool.Tiers[%d].PrizeCount must be positive", ErrInvalidConfig, i)
		}
		tiers[i] = prizepool.Tier{PrizeSize: size, PrizeCount: tier.PrizeCount}
	}
	return prizepool.Config{
		Address:           addr,
		PrizeToken:        c.Pool.PrizeToken,
		Tiers:             tiers,
		CanaryTiers:       c.Pool.CanaryTiers,
		FirstDrawOpensAt:  c.Pool.FirstDrawOpensAt,
		DrawPeriodSeconds: c.Pool.DrawPeriodSeconds,
	}, nil
}

// TrustedVaults parses the trusted vault list.
func (c *Config) TrustedVaults() ([][20]byte, error) {
	out := make([][20]byte, 0, len(c.Trust.TrustedVaults))
	for i, raw := range c.Trust.TrustedVaults {
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: trust.TrustedVaults[%d]: %v", ErrInvalidConfig, i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// Address parses one of the configured hex addresses.
func Address(raw string) ([20]byte, error) {
	return parseAddress(raw)
}

// Amount parses one of the configured base-10 amounts. Empty means zero.
func Amount(raw string) (*big.Int, error) {
	return parseAmount(raw)
}

func parseAddress(raw string) ([20]byte, error) {
	addr, ok := types.ParseAddress(raw)
	if !ok {
		return [20]byte{}, fmt.Errorf("invalid hex address %q", raw)
	}
	if types.IsZeroAddress(addr) {
		return [20]byte{}, fmt.Errorf("zero address")
	}
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return value, nil
}

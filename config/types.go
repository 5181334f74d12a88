package config

import (
	"pthooks/native/claimer"
	"pthooks/native/fees"
)

// Pool describes the reference prize pool the simulator deploys.
type Pool struct {
	Address           string `toml:"Address"`
	PrizeToken        string `toml:"PrizeToken"`
	Tiers             []Tier `toml:"Tiers"`
	CanaryTiers       uint8  `toml:"CanaryTiers"`
	FirstDrawOpensAt  int64  `toml:"FirstDrawOpensAt"`
	DrawPeriodSeconds int64  `toml:"DrawPeriodSeconds"`
	// Reserve is the prize token balance funded into the pool at startup.
	Reserve string `toml:"Reserve"`
}

// Tier is one prize tier. PrizeSize is a base-10 integer in prize token
// units.
type Tier struct {
	PrizeSize  string `toml:"PrizeSize"`
	PrizeCount uint32 `toml:"PrizeCount"`
}

// Vault describes the yield vault whose depositors win prizes.
type Vault struct {
	Address    string `toml:"Address"`
	ShareToken string `toml:"ShareToken"`
}

// Trust configures the verification helper shared by settling hooks.
type Trust struct {
	Owner         string   `toml:"Owner"`
	TrustedVaults []string `toml:"TrustedVaults"`
	// Strict enables the prize pool win authenticity check. Caller and
	// recipient authentication and the replay guard are always on.
	Strict bool `toml:"Strict"`
}

// Compound configures the prize compounding hook.
type Compound struct {
	Address string        `toml:"Address"`
	Fees    fees.Schedule `toml:"fees"`
	// Liquidity is the share reserve seeded into the hook at startup.
	Liquidity string `toml:"Liquidity"`
}

// Raffle configures the randomized redirection hook.
type Raffle struct {
	Address      string `toml:"Address"`
	FirstTokenID uint64 `toml:"FirstTokenID"`
	TokenCount   uint64 `toml:"TokenCount"`
}

// Selection bounds the entropy helper.
type Selection struct {
	Budget uint32 `toml:"Budget"`
}

// Claimer configures the batch claimer.
type Claimer struct {
	Address string       `toml:"Address"`
	Ramp    claimer.Ramp `toml:"ramp"`
	// Reinvest deposits normal-mode rewards into the vault.
	Reinvest bool `toml:"Reinvest"`
}

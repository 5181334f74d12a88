package prizepool

import (
	"math/big"

	"github.com/holiman/uint256"
)

// PrizePool is the slice of the prize pool contract that hooks and the
// claim dispatcher consume.
type PrizePool interface {
	Address() [20]byte
	PrizeToken() string
	IsWinner(vault, winner [20]byte, tier uint8, prizeIndex uint32) (bool, error)
	GetLastAwardedDrawID() (uint32, error)
	GetWinningRandomNumber() (*uint256.Int, error)
	GetTierPrizeSize(tier uint8) (*big.Int, error)
	GetTierPrizeCount(tier uint8) (uint32, error)
	NumberOfTiers() uint8
	IsCanaryTier(tier uint8) bool
	// ContributePrizeTokens accounts amount, already transferred to the pool,
	// as a contribution made on behalf of vault.
	ContributePrizeTokens(vault [20]byte, amount *big.Int) (*big.Int, error)
	// ClaimPrize pays the prize of the latest awarded draw to recipient after
	// deducting reward for rewardRecipient. It returns the amount received by
	// recipient.
	ClaimPrize(vault, winner [20]byte, tier uint8, prizeIndex uint32, recipient [20]byte, reward *big.Int, rewardRecipient [20]byte) (*big.Int, error)
	DrawOpensAt(drawID uint32) int64
	DrawClosesAt(drawID uint32) int64
	DrawPeriodSeconds() int64
}

// TwabController is the time-weighted balance ledger consumed by vaults and
// preference hooks.
type TwabController interface {
	Mint(vault, account [20]byte, amount *big.Int) error
	Burn(vault, account [20]byte, amount *big.Int) error
	BalanceOf(vault, account [20]byte) (*big.Int, error)
	GetTwabBetween(vault, account [20]byte, start, end int64) (*big.Int, error)
}

// Vault is the ERC-4626 surface used by compounding settlements.
type Vault interface {
	Address() [20]byte
	Asset() string
	ShareToken() string
	ConvertToShares(assets *big.Int) (*big.Int, error)
	ConvertToAssets(shares *big.Int) (*big.Int, error)
	Deposit(caller, receiver [20]byte, assets *big.Int) (*big.Int, error)
	BalanceOf(account [20]byte) (*big.Int, error)
	TransferShares(from, to [20]byte, shares *big.Int) error
}

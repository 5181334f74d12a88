package state

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the available balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrNegativeAmount is returned for negative or nil amounts.
	ErrNegativeAmount = errors.New("state: amount must be non-negative")

	balancePrefix = []byte("balance")
	supplyPrefix  = []byte("supply")
)

// NormalizeAsset canonicalises asset symbols for consistent keys.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func balanceKey(asset string, addr [20]byte) []byte {
	return hashKey(balancePrefix, []byte(NormalizeAsset(asset)), addr[:])
}

func supplyKey(asset string) []byte {
	return hashKey(supplyPrefix, []byte(NormalizeAsset(asset)))
}

func (m *Manager) loadAmount(key []byte) (*big.Int, error) {
	out := new(big.Int)
	if _, err := m.getRLP(key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Balance returns the balance of addr in the given asset. Missing balances are zero.
func (m *Manager) Balance(asset string, addr [20]byte) (*big.Int, error) {
	return m.loadAmount(balanceKey(asset, addr))
}

// TotalSupply returns the minted-minus-burned supply of the asset.
func (m *Manager) TotalSupply(asset string) (*big.Int, error) {
	return m.loadAmount(supplyKey(asset))
}

func (m *Manager) setBalance(asset string, addr [20]byte, amount *big.Int) error {
	return m.putRLP(balanceKey(asset, addr), amount)
}

func (m *Manager) adjustSupply(asset string, delta *big.Int) error {
	supply, err := m.TotalSupply(asset)
	if err != nil {
		return err
	}
	supply.Add(supply, delta)
	if supply.Sign() < 0 {
		return fmt.Errorf("state: supply underflow for %s", NormalizeAsset(asset))
	}
	return m.putRLP(supplyKey(asset), supply)
}

// Mint credits amount of asset to addr and grows the supply.
func (m *Manager) Mint(asset string, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := m.Balance(asset, addr)
	if err != nil {
		return err
	}
	if err := m.setBalance(asset, addr, balance.Add(balance, amount)); err != nil {
		return err
	}
	return m.adjustSupply(asset, amount)
}

// Burn debits amount of asset from addr and shrinks the supply.
func (m *Manager) Burn(asset string, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := m.Balance(asset, addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, NormalizeAsset(asset), balance, amount)
	}
	if err := m.setBalance(asset, addr, balance.Sub(balance, amount)); err != nil {
		return err
	}
	return m.adjustSupply(asset, new(big.Int).Neg(amount))
}

// Transfer moves amount of asset between two accounts.
func (m *Manager) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := m.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, NormalizeAsset(asset), fromBal, amount)
	}
	toBal, err := m.Balance(asset, to)
	if err != nil {
		return err
	}
	if err := m.setBalance(asset, from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return m.setBalance(asset, to, toBal.Add(toBal, amount))
}

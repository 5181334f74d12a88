package prizepool

import (
	"fmt"
	"math/big"

	"pthooks/core/state"
	"pthooks/core/types"
)

type vaultState interface {
	Balance(asset string, addr [20]byte) (*big.Int, error)
	TotalSupply(asset string) (*big.Int, error)
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	Mint(asset string, addr [20]byte, amount *big.Int) error
}

// ShareVault is an ERC-4626 style vault whose shares are tracked by the
// TWAB ledger. Conversions use a virtual share and asset of one so an empty
// vault converts 1:1.
type ShareVault struct {
	address [20]byte
	asset   string
	share   string
	state   vaultState
	twab    TwabController
}

// NewShareVault constructs a vault holding asset and issuing share tokens.
func NewShareVault(st vaultState, twab TwabController, address [20]byte, asset, share string) (*ShareVault, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(address) {
		return nil, fmt.Errorf("vault: zero address")
	}
	asset = state.NormalizeAsset(asset)
	share = state.NormalizeAsset(share)
	if asset == "" || share == "" || asset == share {
		return nil, fmt.Errorf("vault: invalid asset/share pair %q/%q", asset, share)
	}
	return &ShareVault{address: address, asset: asset, share: share, state: st, twab: twab}, nil
}

func (v *ShareVault) Address() [20]byte  { return v.address }
func (v *ShareVault) Asset() string      { return v.asset }
func (v *ShareVault) ShareToken() string { return v.share }

func (v *ShareVault) totals() (assets, supply *big.Int, err error) {
	assets, err = v.state.Balance(v.asset, v.address)
	if err != nil {
		return nil, nil, err
	}
	supply, err = v.state.TotalSupply(v.share)
	if err != nil {
		return nil, nil, err
	}
	return assets, supply, nil
}

func (v *ShareVault) ConvertToShares(assets *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	total, supply, err := v.totals()
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(assets, supply.Add(supply, big.NewInt(1)))
	return out.Quo(out, total.Add(total, big.NewInt(1))), nil
}

func (v *ShareVault) ConvertToAssets(shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	total, supply, err := v.totals()
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(shares, total.Add(total, big.NewInt(1)))
	return out.Quo(out, supply.Add(supply, big.NewInt(1))), nil
}

// Deposit pulls assets from caller and mints shares to receiver.
func (v *ShareVault) Deposit(caller, receiver [20]byte, assets *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	shares, err := v.ConvertToShares(assets)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 {
		return nil, fmt.Errorf("vault: deposit of %s mints zero shares", assets)
	}
	if err := v.state.Transfer(v.asset, caller, v.address, assets); err != nil {
		return nil, err
	}
	if err := v.state.Mint(v.share, receiver, shares); err != nil {
		return nil, err
	}
	if v.twab != nil {
		if err := v.twab.Mint(v.address, receiver, shares); err != nil {
			return nil, err
		}
	}
	return shares, nil
}

// BalanceOf returns the share balance of account.
func (v *ShareVault) BalanceOf(account [20]byte) (*big.Int, error) {
	return v.state.Balance(v.share, account)
}

// TransferShares moves shares between accounts and mirrors the move in the
// TWAB ledger.
func (v *ShareVault) TransferShares(from, to [20]byte, shares *big.Int) error {
	if shares == nil || shares.Sign() < 0 {
		return ErrInvalidAmount
	}
	if shares.Sign() == 0 || from == to {
		return nil
	}
	if err := v.state.Transfer(v.share, from, to, shares); err != nil {
		return err
	}
	if v.twab == nil {
		return nil
	}
	if err := v.twab.Burn(v.address, from, shares); err != nil {
		return err
	}
	return v.twab.Mint(v.address, to, shares)
}

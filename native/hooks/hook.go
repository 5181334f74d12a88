package hooks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"pthooks/core/state"
	"pthooks/core/types"
)

var (
	ErrNilState        = errors.New("hooks: state not configured")
	ErrUnknownHook     = errors.New("hooks: implementation not registered")
	ErrZeroAddress     = errors.New("hooks: zero address")
	ErrDuplicateHook   = errors.New("hooks: implementation already registered")
	ErrMissingPrizeAmt = errors.New("hooks: prize pool returned no amount")
	ErrHookPanicked    = errors.New("hooks: hook panicked")
)

// BeforeCall carries the arguments of BeforeClaimPrize. Vault is the calling
// vault; Claimer is the account receiving the claim reward.
type BeforeCall struct {
	Vault      [20]byte
	Winner     [20]byte
	Tier       uint8
	PrizeIndex uint32
	Reward     *big.Int
	Claimer    [20]byte
}

// AfterCall carries the arguments of AfterClaimPrize.
type AfterCall struct {
	Vault       [20]byte
	Winner      [20]byte
	Tier        uint8
	PrizeIndex  uint32
	PrizeAmount *big.Int
	Recipient   [20]byte
	AuxData     []byte
}

// Hook is a pair of callbacks run around a prize claim.
//
// BeforeClaimPrize chooses the recipient of the prize. It may be invoked
// speculatively and must not mutate persistent state. A zero recipient keeps
// the default of paying the winner. AfterClaimPrize runs once the prize has
// been transferred; any error aborts the whole claim.
type Hook interface {
	BeforeClaimPrize(ctx context.Context, call BeforeCall) (recipient [20]byte, auxData []byte, err error)
	AfterClaimPrize(ctx context.Context, call AfterCall) error
}

type settingsState interface {
	HookSettingsGet(vault [20]byte, account [20]byte) (state.HookSettings, bool, error)
	HookSettingsPut(vault [20]byte, account [20]byte, settings state.HookSettings) error
}

// Registry resolves hook implementations by address and stores the hook
// settings each account selects on a vault.
type Registry struct {
	state settingsState

	mu    sync.RWMutex
	impls map[[20]byte]Hook
}

// NewRegistry constructs an empty registry backed by st.
func NewRegistry(st settingsState) (*Registry, error) {
	if st == nil {
		return nil, ErrNilState
	}
	return &Registry{state: st, impls: make(map[[20]byte]Hook)}, nil
}

// Register makes hook resolvable at address.
func (r *Registry) Register(address [20]byte, hook Hook) error {
	if types.IsZeroAddress(address) {
		return ErrZeroAddress
	}
	if hook == nil {
		return fmt.Errorf("hooks: nil implementation for %s", types.HexAddress(address))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.impls[address]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHook, types.HexAddress(address))
	}
	r.impls[address] = hook
	return nil
}

// Resolve returns the implementation registered at address.
func (r *Registry) Resolve(address [20]byte) (Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hook, ok := r.impls[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHook, types.HexAddress(address))
	}
	return hook, nil
}

// SetHooks records the hook settings account uses on vault. Enabling either
// callback requires a registered implementation.
func (r *Registry) SetHooks(vault, account [20]byte, settings state.HookSettings) error {
	if types.IsZeroAddress(account) {
		return ErrZeroAddress
	}
	if settings.UseBeforeClaimPrize || settings.UseAfterClaimPrize {
		if _, err := r.Resolve(settings.Implementation); err != nil {
			return err
		}
	}
	return r.state.HookSettingsPut(vault, account, settings)
}

// GetHooks returns the settings account uses on vault. Accounts that never
// configured hooks get the zero settings.
func (r *Registry) GetHooks(vault, account [20]byte) (state.HookSettings, error) {
	settings, _, err := r.state.HookSettingsGet(vault, account)
	return settings, err
}

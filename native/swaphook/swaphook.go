package swaphook

import (
	"context"
	"errors"
	"math/big"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/swapper"
	"pthooks/native/verify"
)

var ErrNotConfigured = errors.New("swaphook: swapper manager not configured")

// Hook sends each winner's prizes to the swapper bound to the winner. Winners
// without a binding are paid directly.
type Hook struct {
	address  [20]byte
	manager  *swapper.Manager
	verifier *verify.Verifier
	emitter  events.Emitter
}

// New constructs a swapper hook. verifier may be nil when the hook is only
// used by vaults that cannot skip BeforeClaimPrize.
func New(address [20]byte, manager *swapper.Manager, verifier *verify.Verifier) (*Hook, error) {
	if manager == nil {
		return nil, ErrNotConfigured
	}
	if types.IsZeroAddress(address) {
		return nil, hooks.ErrZeroAddress
	}
	return &Hook{address: address, manager: manager, verifier: verifier, emitter: events.NoopEmitter{}}, nil
}

// SetEmitter configures the event emitter used outside of a dispatched claim.
func (h *Hook) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		h.emitter = events.NoopEmitter{}
		return
	}
	h.emitter = emitter
}

func (h *Hook) Address() [20]byte { return h.address }

// SetSwapper binds a fresh swapper to account, handing any previous one
// back to the account.
func (h *Hook) SetSwapper(account [20]byte, params swapper.Params) ([20]byte, error) {
	return h.manager.Replace(account, params)
}

// EnsureSwapper returns the account's swapper, creating one if needed.
func (h *Hook) EnsureSwapper(account [20]byte, params swapper.Params) ([20]byte, error) {
	return h.manager.GetOrCreate(account, params)
}

// RemoveSwapper clears the account's binding and hands the swapper back.
func (h *Hook) RemoveSwapper(account [20]byte) ([20]byte, bool, error) {
	return h.manager.RemoveAndRecover(account)
}

func (h *Hook) BeforeClaimPrize(_ context.Context, call hooks.BeforeCall) ([20]byte, []byte, error) {
	handle, ok, err := h.manager.Lookup(call.Winner)
	if err != nil || !ok {
		return [20]byte{}, nil, err
	}
	return handle, nil, nil
}

func (h *Hook) AfterClaimPrize(ctx context.Context, call hooks.AfterCall) error {
	handle, ok, err := h.manager.Lookup(call.Winner)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if h.verifier != nil {
		if _, err := h.verifier.Authenticate(verify.Settlement{
			Caller:            call.Vault,
			Winner:            call.Winner,
			Tier:              call.Tier,
			PrizeIndex:        call.PrizeIndex,
			Recipient:         call.Recipient,
			ExpectedRecipient: handle,
		}); err != nil {
			return err
		}
	} else if err := verify.AuthenticateRecipient(handle, call.Recipient); err != nil {
		return err
	}
	if call.PrizeAmount == nil || call.PrizeAmount.Sign() == 0 {
		return nil
	}
	amount := new(big.Int).Set(call.PrizeAmount)
	events.FromContext(ctx, h.emitter).Emit(events.PrizeRedirected{
		Hook:       h.address,
		Vault:      call.Vault,
		Winner:     call.Winner,
		Recipient:  handle,
		Tier:       call.Tier,
		PrizeIndex: call.PrizeIndex,
		Amount:     amount,
	})
	return nil
}

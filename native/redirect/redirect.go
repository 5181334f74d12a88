package redirect

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
)

var (
	ErrZeroAddress = errors.New("redirect: zero address")
	ErrNoTiers     = errors.New("redirect: no eligible tier")
)

// Hook sends prizes to a fixed target. When a tier filter is configured only
// matching tiers are redirected and every other prize keeps the default
// recipient.
type Hook struct {
	address  [20]byte
	target   [20]byte
	tiers    map[uint8]struct{}
	verifier *verify.Verifier
	emitter  events.Emitter
}

// Option customises a Hook.
type Option func(*Hook)

// WithVerifier authenticates every redirected prize in AfterClaimPrize.
func WithVerifier(v *verify.Verifier) Option {
	return func(h *Hook) { h.verifier = v }
}

// WithTiers restricts redirection to the listed tiers.
func WithTiers(tiers ...uint8) Option {
	return func(h *Hook) {
		if h.tiers == nil {
			h.tiers = make(map[uint8]struct{}, len(tiers))
		}
		for _, tier := range tiers {
			h.tiers[tier] = struct{}{}
		}
	}
}

// New constructs a hook at address redirecting to target.
func New(address, target [20]byte, opts ...Option) (*Hook, error) {
	if types.IsZeroAddress(address) {
		return nil, fmt.Errorf("%w: hook", ErrZeroAddress)
	}
	if types.IsZeroAddress(target) {
		return nil, fmt.Errorf("%w: target", ErrZeroAddress)
	}
	h := &Hook{address: address, target: target, emitter: events.NoopEmitter{}}
	for _, opt := range opts {
		opt(h)
	}
	if h.tiers != nil && len(h.tiers) == 0 {
		return nil, ErrNoTiers
	}
	return h, nil
}

// ToSelf redirects every prize to the hook itself.
func ToSelf(address [20]byte, opts ...Option) (*Hook, error) {
	return New(address, address, opts...)
}

// ToBurn redirects every prize to the burn sentinel.
func ToBurn(address [20]byte, opts ...Option) (*Hook, error) {
	return New(address, types.BurnAddress, opts...)
}

// DailyTier returns the last tier of pool that is not a canary tier.
func DailyTier(pool prizepool.PrizePool) (uint8, error) {
	for tier := int(pool.NumberOfTiers()) - 1; tier >= 0; tier-- {
		if !pool.IsCanaryTier(uint8(tier)) {
			return uint8(tier), nil
		}
	}
	return 0, ErrNoTiers
}

// ForDailyTier redirects only prizes of the pool's daily tier to target.
func ForDailyTier(address, target [20]byte, pool prizepool.PrizePool, opts ...Option) (*Hook, error) {
	tier, err := DailyTier(pool)
	if err != nil {
		return nil, err
	}
	return New(address, target, append([]Option{WithTiers(tier)}, opts...)...)
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
func (h *Hook) Target() [20]byte  { return h.target }

func (h *Hook) applies(tier uint8) bool {
	if h.tiers == nil {
		return true
	}
	_, ok := h.tiers[tier]
	return ok
}

func (h *Hook) BeforeClaimPrize(_ context.Context, call hooks.BeforeCall) ([20]byte, []byte, error) {
	if !h.applies(call.Tier) {
		return [20]byte{}, nil, nil
	}
	return h.target, nil, nil
}

func (h *Hook) AfterClaimPrize(ctx context.Context, call hooks.AfterCall) error {
	if !h.applies(call.Tier) {
		return nil
	}
	if h.verifier != nil {
		if _, err := h.verifier.Authenticate(verify.Settlement{
			Caller:            call.Vault,
			Winner:            call.Winner,
			Tier:              call.Tier,
			PrizeIndex:        call.PrizeIndex,
			Recipient:         call.Recipient,
			ExpectedRecipient: h.target,
		}); err != nil {
			return err
		}
	} else if err := verify.AuthenticateRecipient(h.target, call.Recipient); err != nil {
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
		Recipient:  call.Recipient,
		Tier:       call.Tier,
		PrizeIndex: call.PrizeIndex,
		Amount:     amount,
	})
	return nil
}

package verify

import (
	"errors"
	"fmt"

	"pthooks/core/types"
)

var (
	ErrCallerNotTrusted   = errors.New("verify: caller not trusted")
	ErrDidNotReceivePrize = errors.New("verify: hook did not receive prize")
	ErrDidNotWin          = errors.New("verify: did not win")
	ErrRepeatHook         = errors.New("verify: prize already hooked")
	ErrNotConfigured      = errors.New("verify: dependency not configured")
)

// TrustChecker answers whether a caller may trigger privileged effects.
type TrustChecker interface {
	IsTrusted(subject [20]byte) (bool, error)
}

// WinChecker is the prize pool query used to authenticate a win.
type WinChecker interface {
	IsWinner(vault, winner [20]byte, tier uint8, prizeIndex uint32) (bool, error)
	GetLastAwardedDrawID() (uint32, error)
}

// Settlement carries the inputs of the verification sequence.
type Settlement struct {
	Caller            [20]byte
	Winner            [20]byte
	Tier              uint8
	PrizeIndex        uint32
	Recipient         [20]byte
	ExpectedRecipient [20]byte
}

// Verifier runs the ordered checks a settling hook performs before any
// value-bearing effect. Every check is enabled unless an option relaxes it.
type Verifier struct {
	trust     TrustChecker
	singleton [20]byte
	pool      WinChecker
	guard     *ReplayGuard
	winCheck  bool
	replay    bool
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithSingletonCaller accepts exactly one caller instead of consulting a
// trust registry.
func WithSingletonCaller(caller [20]byte) Option {
	return func(v *Verifier) { v.singleton = caller }
}

// WithoutWinCheck skips the prize pool authenticity query.
func WithoutWinCheck() Option {
	return func(v *Verifier) { v.winCheck = false }
}

// WithoutReplayGuard skips replay protection.
func WithoutReplayGuard() Option {
	return func(v *Verifier) { v.replay = false }
}

// NewVerifier constructs a verifier. trust may be nil only when a singleton
// caller is supplied; pool and guard may be nil only when the matching check
// is disabled.
func NewVerifier(trust TrustChecker, pool WinChecker, guard *ReplayGuard, opts ...Option) (*Verifier, error) {
	v := &Verifier{trust: trust, pool: pool, guard: guard, winCheck: true, replay: true}
	for _, opt := range opts {
		opt(v)
	}
	if v.trust == nil && types.IsZeroAddress(v.singleton) {
		return nil, fmt.Errorf("%w: trust registry or singleton caller", ErrNotConfigured)
	}
	if (v.winCheck || v.replay) && v.pool == nil {
		return nil, fmt.Errorf("%w: prize pool", ErrNotConfigured)
	}
	if v.replay && v.guard == nil {
		return nil, fmt.Errorf("%w: replay guard", ErrNotConfigured)
	}
	return v, nil
}

// AuthenticateCaller rejects callers that are neither the singleton nor trusted.
func (v *Verifier) AuthenticateCaller(caller [20]byte) error {
	if !types.IsZeroAddress(v.singleton) {
		if caller == v.singleton {
			return nil
		}
		if v.trust == nil {
			return fmt.Errorf("%w: %s", ErrCallerNotTrusted, types.HexAddress(caller))
		}
	}
	trusted, err := v.trust.IsTrusted(caller)
	if err != nil {
		return err
	}
	if !trusted {
		return fmt.Errorf("%w: %s", ErrCallerNotTrusted, types.HexAddress(caller))
	}
	return nil
}

// AuthenticateRecipient rejects settlements whose funds went elsewhere.
func AuthenticateRecipient(expected, actual [20]byte) error {
	if expected != actual {
		return fmt.Errorf("%w: expected %s, got %s", ErrDidNotReceivePrize, types.HexAddress(expected), types.HexAddress(actual))
	}
	return nil
}

// VerifyWin asks the prize pool whether winner won the prize through vault.
func (v *Verifier) VerifyWin(vault, winner [20]byte, tier uint8, prizeIndex uint32) error {
	won, err := v.pool.IsWinner(vault, winner, tier, prizeIndex)
	if err != nil {
		return err
	}
	if !won {
		return ErrDidNotWin
	}
	return nil
}

// Authenticate runs caller, recipient, win and replay checks in that order
// and returns the draw the prize belongs to. The replay key is consumed
// before returning so the caller can act on the prize afterwards.
func (v *Verifier) Authenticate(s Settlement) (uint32, error) {
	if err := v.AuthenticateCaller(s.Caller); err != nil {
		return 0, err
	}
	if err := AuthenticateRecipient(s.ExpectedRecipient, s.Recipient); err != nil {
		return 0, err
	}
	if v.winCheck {
		if err := v.VerifyWin(s.Caller, s.Winner, s.Tier, s.PrizeIndex); err != nil {
			return 0, err
		}
	}
	if !v.replay {
		if v.pool == nil {
			return 0, nil
		}
		return v.pool.GetLastAwardedDrawID()
	}
	drawID, err := v.pool.GetLastAwardedDrawID()
	if err != nil {
		return 0, err
	}
	key := ReplayKey(s.Caller, s.Winner, drawID, s.Tier, s.PrizeIndex)
	if err := v.guard.Consume(key); err != nil {
		return 0, err
	}
	return drawID, nil
}

package hooks

import (
	"context"
	"errors"
	"fmt"

	"pthooks/core/types"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
)

// Rejection reasons attached to aborted claims.
const (
	ReasonCallerNotTrusted   = "caller_not_trusted"
	ReasonDidNotReceivePrize = "did_not_receive_prize"
	ReasonDidNotWin          = "did_not_win"
	ReasonRepeatHook         = "repeat_hook"
	ReasonAlreadyClaimed     = "already_claimed"
	ReasonInvalidPrize       = "invalid_prize"
	ReasonCanceled           = "canceled"
	ReasonHookFailed         = "hook_failed"
)

// Classify maps a claim failure onto a stable reason string.
func Classify(err error) string {
	switch {
	case errors.Is(err, verify.ErrCallerNotTrusted):
		return ReasonCallerNotTrusted
	case errors.Is(err, verify.ErrDidNotReceivePrize):
		return ReasonDidNotReceivePrize
	case errors.Is(err, verify.ErrDidNotWin), errors.Is(err, prizepool.ErrNotWinner):
		return ReasonDidNotWin
	case errors.Is(err, verify.ErrRepeatHook):
		return ReasonRepeatHook
	case errors.Is(err, prizepool.ErrAlreadyClaimed):
		return ReasonAlreadyClaimed
	case errors.Is(err, prizepool.ErrInvalidTier), errors.Is(err, prizepool.ErrInvalidIndex),
		errors.Is(err, prizepool.ErrRewardTooLarge), errors.Is(err, prizepool.ErrNoDrawAwarded):
		return ReasonInvalidPrize
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonHookFailed
	}
}

// ClaimError reports an aborted claim. Every effect of the claim has been
// rolled back when it is returned.
type ClaimError struct {
	Vault      [20]byte
	Winner     [20]byte
	Tier       uint8
	PrizeIndex uint32
	Reason     string
	Err        error
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("hooks: claim %s/%d/%d for %s rejected (%s): %v",
		types.HexAddress(e.Vault), e.Tier, e.PrizeIndex, types.HexAddress(e.Winner), e.Reason, e.Err)
}

func (e *ClaimError) Unwrap() error { return e.Err }

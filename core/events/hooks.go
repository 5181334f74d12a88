package events

import (
	"math/big"

	"pthooks/core/types"
)

const (
	TypePrizeClaimed          = "vault.prize.claimed"
	TypeClaimRejected         = "vault.claim.rejected"
	TypePrizeRedirected       = "hook.prize.redirected"
	TypePrizeSettled          = "hook.prize.settled"
	TypePrizeContributed      = "hook.prize.contributed"
	TypeLiquidityFallback     = "hook.liquidity.fallback"
	TypeReplayRejected        = "hook.replay.rejected"
	TypeSelectionResolved     = "hook.selection.resolved"
	TypeSwapperBindingChanged = "swapper.binding.changed"
	TypeVoteChanged           = "prizevote.vote.changed"
	TypeTrustGranted          = "access.trust.granted"
	TypeTrustRevoked          = "access.trust.revoked"
	TypeOwnershipTransferred  = "access.ownership.transferred"
	TypeBatchClaimFailed      = "claimer.batch.failed"
	TypeBatchClaimSettled     = "claimer.batch.settled"
)

// PrizeClaimed records a completed claim as seen by the dispatcher.
type PrizeClaimed struct {
	Vault           [20]byte
	Winner          [20]byte
	Recipient       [20]byte
	DrawID          uint32
	Tier            uint8
	PrizeIndex      uint32
	Amount          *big.Int
	Reward          *big.Int
	RewardRecipient [20]byte
}

func (PrizeClaimed) EventType() string { return TypePrizeClaimed }

func (e PrizeClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypePrizeClaimed,
		Attributes: map[string]string{
			"vault":           hexAddr(e.Vault),
			"winner":          hexAddr(e.Winner),
			"recipient":       hexAddr(e.Recipient),
			"drawId":          uintToString(uint64(e.DrawID)),
			"tier":            uintToString(uint64(e.Tier)),
			"prizeIndex":      uintToString(uint64(e.PrizeIndex)),
			"amount":          formatAmount(e.Amount),
			"reward":          formatAmount(e.Reward),
			"rewardRecipient": hexAddr(e.RewardRecipient),
		},
	}
}

// ClaimRejected records an aborted claim and the classified reason. Every
// effect of the aborted claim has already been rolled back when it is emitted.
type ClaimRejected struct {
	Vault      [20]byte
	Winner     [20]byte
	Tier       uint8
	PrizeIndex uint32
	Reason     string
	Error      string
}

func (ClaimRejected) EventType() string { return TypeClaimRejected }

func (e ClaimRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimRejected,
		Attributes: map[string]string{
			"vault":      hexAddr(e.Vault),
			"winner":     hexAddr(e.Winner),
			"tier":       uintToString(uint64(e.Tier)),
			"prizeIndex": uintToString(uint64(e.PrizeIndex)),
			"reason":     e.Reason,
			"error":      e.Error,
		},
	}
}

// PrizeRedirected records a hook pointing a prize at a recipient other than
// the winner.
type PrizeRedirected struct {
	Hook       [20]byte
	Vault      [20]byte
	Winner     [20]byte
	Recipient  [20]byte
	Tier       uint8
	PrizeIndex uint32
	Amount     *big.Int
}

func (PrizeRedirected) EventType() string { return TypePrizeRedirected }

func (e PrizeRedirected) Event() *types.Event {
	return &types.Event{
		Type: TypePrizeRedirected,
		Attributes: map[string]string{
			"hook":       hexAddr(e.Hook),
			"vault":      hexAddr(e.Vault),
			"winner":     hexAddr(e.Winner),
			"recipient":  hexAddr(e.Recipient),
			"tier":       uintToString(uint64(e.Tier)),
			"prizeIndex": uintToString(uint64(e.PrizeIndex)),
			"amount":     formatAmount(e.Amount),
		},
	}
}

// PrizeSettled records the fee split applied by a settling hook.
type PrizeSettled struct {
	Hook            [20]byte
	Vault           [20]byte
	Winner          [20]byte
	DrawID          uint32
	Tier            uint8
	PrizeIndex      uint32
	PrizeAmount     *big.Int
	Fee             *big.Int
	Reward          *big.Int
	RewardRecipient [20]byte
	Payout          *big.Int
	PayoutAsset     string
}

func (PrizeSettled) EventType() string { return TypePrizeSettled }

func (e PrizeSettled) Event() *types.Event {
	return &types.Event{
		Type: TypePrizeSettled,
		Attributes: map[string]string{
			"hook":            hexAddr(e.Hook),
			"vault":           hexAddr(e.Vault),
			"winner":          hexAddr(e.Winner),
			"drawId":          uintToString(uint64(e.DrawID)),
			"tier":            uintToString(uint64(e.Tier)),
			"prizeIndex":      uintToString(uint64(e.PrizeIndex)),
			"prizeAmount":     formatAmount(e.PrizeAmount),
			"fee":             formatAmount(e.Fee),
			"reward":          formatAmount(e.Reward),
			"rewardRecipient": hexAddr(e.RewardRecipient),
			"payout":          formatAmount(e.Payout),
			"payoutAsset":     normalizeAsset(e.PayoutAsset),
		},
	}
}

// PrizeContributed records prize value returned to the prize pool.
type PrizeContributed struct {
	Hook   [20]byte
	Vault  [20]byte
	Winner [20]byte
	Amount *big.Int
}

func (PrizeContributed) EventType() string { return TypePrizeContributed }

func (e PrizeContributed) Event() *types.Event {
	return &types.Event{
		Type: TypePrizeContributed,
		Attributes: map[string]string{
			"hook":   hexAddr(e.Hook),
			"vault":  hexAddr(e.Vault),
			"winner": hexAddr(e.Winner),
			"amount": formatAmount(e.Amount),
		},
	}
}

// LiquidityFallback records a settlement that skipped the conversion step
// because the hook could not fund it.
type LiquidityFallback struct {
	Hook        [20]byte
	Winner      [20]byte
	PrizeAmount *big.Int
	Required    *big.Int
	Available   *big.Int
}

func (LiquidityFallback) EventType() string { return TypeLiquidityFallback }

func (e LiquidityFallback) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityFallback,
		Attributes: map[string]string{
			"hook":        hexAddr(e.Hook),
			"winner":      hexAddr(e.Winner),
			"prizeAmount": formatAmount(e.PrizeAmount),
			"required":    formatAmount(e.Required),
			"available":   formatAmount(e.Available),
		},
	}
}

// ReplayRejected records a second settlement attempt for an already hooked
// prize.
type ReplayRejected struct {
	Vault      [20]byte
	Winner     [20]byte
	DrawID     uint32
	Tier       uint8
	PrizeIndex uint32
}

func (ReplayRejected) EventType() string { return TypeReplayRejected }

func (e ReplayRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeReplayRejected,
		Attributes: map[string]string{
			"vault":      hexAddr(e.Vault),
			"winner":     hexAddr(e.Winner),
			"drawId":     uintToString(uint64(e.DrawID)),
			"tier":       uintToString(uint64(e.Tier)),
			"prizeIndex": uintToString(uint64(e.PrizeIndex)),
		},
	}
}

// SelectionResolved records the outcome of a randomized recipient search.
type SelectionResolved struct {
	Hook           [20]byte
	Vault          [20]byte
	Winner         [20]byte
	DrawID         uint32
	Tier           uint8
	PrizeIndex     uint32
	Recipient      [20]byte
	CandidateIndex uint64
	Attempts       uint64
	Fallback       bool
}

func (SelectionResolved) EventType() string { return TypeSelectionResolved }

func (e SelectionResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeSelectionResolved,
		Attributes: map[string]string{
			"hook":           hexAddr(e.Hook),
			"vault":          hexAddr(e.Vault),
			"winner":         hexAddr(e.Winner),
			"drawId":         uintToString(uint64(e.DrawID)),
			"tier":           uintToString(uint64(e.Tier)),
			"prizeIndex":     uintToString(uint64(e.PrizeIndex)),
			"recipient":      hexAddr(e.Recipient),
			"candidateIndex": uintToString(e.CandidateIndex),
			"attempts":       uintToString(e.Attempts),
			"fallback":       boolToString(e.Fallback),
		},
	}
}

// SwapperBindingChanged records a change to an account's swapper binding.
// Action is one of "created", "replaced" or "removed".
type SwapperBindingChanged struct {
	Account    [20]byte
	Action     string
	OldSwapper [20]byte
	NewSwapper [20]byte
}

func (SwapperBindingChanged) EventType() string { return TypeSwapperBindingChanged }

func (e SwapperBindingChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapperBindingChanged,
		Attributes: map[string]string{
			"account":    hexAddr(e.Account),
			"action":     e.Action,
			"oldSwapper": hexAddr(e.OldSwapper),
			"newSwapper": hexAddr(e.NewSwapper),
		},
	}
}

// VoteChanged records an account updating its minimum desired prize value.
type VoteChanged struct {
	Account  [20]byte
	Previous *big.Int
	Current  *big.Int
}

func (VoteChanged) EventType() string { return TypeVoteChanged }

func (e VoteChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeVoteChanged,
		Attributes: map[string]string{
			"account":  hexAddr(e.Account),
			"previous": formatAmount(e.Previous),
			"current":  formatAmount(e.Current),
		},
	}
}

// TrustGranted records a caller being added to a trust registry.
type TrustGranted struct {
	Registry string
	Owner    [20]byte
	Subject  [20]byte
}

func (TrustGranted) EventType() string { return TypeTrustGranted }

func (e TrustGranted) Event() *types.Event {
	return &types.Event{
		Type: TypeTrustGranted,
		Attributes: map[string]string{
			"registry": e.Registry,
			"owner":    hexAddr(e.Owner),
			"subject":  hexAddr(e.Subject),
		},
	}
}

// TrustRevoked records a caller being removed from a trust registry by its owner.
type TrustRevoked struct {
	Registry string
	Owner    [20]byte
	Subject  [20]byte
}

func (TrustRevoked) EventType() string { return TypeTrustRevoked }

func (e TrustRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypeTrustRevoked,
		Attributes: map[string]string{
			"registry": e.Registry,
			"owner":    hexAddr(e.Owner),
			"subject":  hexAddr(e.Subject),
		},
	}
}

// OwnershipTransferred records an owner handing its capability to another account.
type OwnershipTransferred struct {
	Registry string
	Previous [20]byte
	Current  [20]byte
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeOwnershipTransferred,
		Attributes: map[string]string{
			"registry": e.Registry,
			"previous": hexAddr(e.Previous),
			"current":  hexAddr(e.Current),
		},
	}
}

// BatchClaimFailed records a single claim that failed inside a batch. The
// batch continues with the remaining winners.
type BatchClaimFailed struct {
	BatchID    string
	Vault      [20]byte
	Winner     [20]byte
	Tier       uint8
	PrizeIndex uint32
	Reason     string
}

func (BatchClaimFailed) EventType() string { return TypeBatchClaimFailed }

func (e BatchClaimFailed) Event() *types.Event {
	return &types.Event{
		Type: TypeBatchClaimFailed,
		Attributes: map[string]string{
			"batchId":    e.BatchID,
			"vault":      hexAddr(e.Vault),
			"winner":     hexAddr(e.Winner),
			"tier":       uintToString(uint64(e.Tier)),
			"prizeIndex": uintToString(uint64(e.PrizeIndex)),
			"reason":     e.Reason,
		},
	}
}

// BatchClaimSettled summarises a batch. TotalReward only counts successful claims.
type BatchClaimSettled struct {
	BatchID         string
	Vault           [20]byte
	Tier            uint8
	Mode            string
	Claimed         uint64
	Failed          uint64
	TotalReward     *big.Int
	Reinvested      *big.Int
	RewardRecipient [20]byte
}

func (BatchClaimSettled) EventType() string { return TypeBatchClaimSettled }

func (e BatchClaimSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeBatchClaimSettled,
		Attributes: map[string]string{
			"batchId":         e.BatchID,
			"vault":           hexAddr(e.Vault),
			"tier":            uintToString(uint64(e.Tier)),
			"mode":            e.Mode,
			"claimed":         uintToString(e.Claimed),
			"failed":          uintToString(e.Failed),
			"totalReward":     formatAmount(e.TotalReward),
			"reinvested":      formatAmount(e.Reinvested),
			"rewardRecipient": hexAddr(e.RewardRecipient),
		},
	}
}

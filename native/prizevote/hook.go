package prizevote

import (
	"context"
	"fmt"
	"math/big"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
)

type hookState interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
}

// Hook forfeits prizes smaller than the winner's vote. Forfeited prizes are
// routed to the hook and contributed back to the prize pool on behalf of the
// vault, growing future prizes.
type Hook struct {
	address  [20]byte
	pool     prizepool.PrizePool
	votes    *Votes
	verifier *verify.Verifier
	state    hookState
	emitter  events.Emitter
}

// NewHook constructs a vote-driven forfeit hook.
func NewHook(st hookState, address [20]byte, pool prizepool.PrizePool, votes *Votes, verifier *verify.Verifier) (*Hook, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(address) {
		return nil, ErrZeroAddress
	}
	if pool == nil || votes == nil || verifier == nil {
		return nil, fmt.Errorf("%w: pool, votes and verifier are required", ErrZeroAddress)
	}
	return &Hook{address: address, pool: pool, votes: votes, verifier: verifier, state: st, emitter: events.NoopEmitter{}}, nil
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

// Forfeits reports whether winner's prize in tier falls below its vote.
func (h *Hook) Forfeits(winner [20]byte, tier uint8) (bool, error) {
	vote, err := h.votes.VoteOf(winner)
	if err != nil || vote.Sign() == 0 {
		return false, err
	}
	size, err := h.pool.GetTierPrizeSize(tier)
	if err != nil {
		return false, err
	}
	return size.Cmp(vote) < 0, nil
}

func (h *Hook) BeforeClaimPrize(_ context.Context, call hooks.BeforeCall) ([20]byte, []byte, error) {
	forfeit, err := h.Forfeits(call.Winner, call.Tier)
	if err != nil || !forfeit {
		return [20]byte{}, nil, err
	}
	return h.address, nil, nil
}

func (h *Hook) AfterClaimPrize(ctx context.Context, call hooks.AfterCall) error {
	forfeit, err := h.Forfeits(call.Winner, call.Tier)
	if err != nil {
		return err
	}
	if !forfeit && call.Recipient != h.address {
		return nil
	}
	if _, err := h.verifier.Authenticate(verify.Settlement{
		Caller:            call.Vault,
		Winner:            call.Winner,
		Tier:              call.Tier,
		PrizeIndex:        call.PrizeIndex,
		Recipient:         call.Recipient,
		ExpectedRecipient: h.address,
	}); err != nil {
		return err
	}
	if call.PrizeAmount == nil || call.PrizeAmount.Sign() == 0 {
		return nil
	}
	amount := new(big.Int).Set(call.PrizeAmount)
	if err := h.state.Transfer(h.pool.PrizeToken(), h.address, h.pool.Address(), amount); err != nil {
		return err
	}
	if _, err := h.pool.ContributePrizeTokens(call.Vault, amount); err != nil {
		return err
	}
	events.FromContext(ctx, h.emitter).Emit(events.PrizeContributed{Hook: h.address, Vault: call.Vault, Winner: call.Winner, Amount: amount})
	return nil
}

package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/selection"
	"pthooks/native/verify"
	"pthooks/observability/metrics"
)

var (
	ErrNilState     = errors.New("raffle: state not configured")
	ErrZeroAddress  = errors.New("raffle: zero address")
	ErrEmptyRange   = errors.New("raffle: empty token range")
	ErrRangeOverrun = errors.New("raffle: token range overflows")
)

// TokenOwners resolves the current owner of a token. ok=false means the
// token does not exist or has been burned.
type TokenOwners interface {
	OwnerOf(tokenID uint64) (owner [20]byte, ok bool, err error)
}

// StaticOwners is an in-memory TokenOwners.
type StaticOwners struct {
	mu     sync.RWMutex
	owners map[uint64][20]byte
}

// NewStaticOwners returns an empty owner table.
func NewStaticOwners() *StaticOwners {
	return &StaticOwners{owners: make(map[uint64][20]byte)}
}

// Set assigns tokenID to owner. A zero owner burns the token.
func (s *StaticOwners) Set(tokenID uint64, owner [20]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if types.IsZeroAddress(owner) {
		delete(s.owners, tokenID)
		return
	}
	s.owners[tokenID] = owner
}

func (s *StaticOwners) OwnerOf(tokenID uint64) ([20]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[tokenID]
	return owner, ok, nil
}

type hookState interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
}

// Config captures the construction parameters of a Hook.
type Config struct {
	Address      [20]byte
	Pool         prizepool.PrizePool
	Owners       TokenOwners
	FirstTokenID uint64
	TokenCount   uint64
	Verifier     *verify.Verifier
	// AttemptCost is charged against the claim budget for each pick.
	AttemptCost uint64
	// FallbackBudget is used when the claim context carries no budget.
	FallbackBudget uint64
}

// Hook hands each prize to the owner of a token drawn uniformly from a
// range. The draw is seeded by the draw's winning random number and the
// claim's tier and prize index only. Burned tokens are skipped by drawing
// again; when the budget runs out the prize goes back to the prize pool as a
// contribution on behalf of the vault.
type Hook struct {
	address        [20]byte
	pool           prizepool.PrizePool
	owners         TokenOwners
	first          uint64
	count          uint64
	verifier       *verify.Verifier
	attemptCost    uint64
	fallbackBudget uint64
	state          hookState
	emitter        events.Emitter
	telemetry      *metrics.HookMetrics
}

// New constructs a raffle hook.
func New(st hookState, cfg Config) (*Hook, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(cfg.Address) {
		return nil, fmt.Errorf("%w: hook", ErrZeroAddress)
	}
	if cfg.Pool == nil || cfg.Owners == nil || cfg.Verifier == nil {
		return nil, fmt.Errorf("%w: pool, owners and verifier are required", ErrZeroAddress)
	}
	if cfg.TokenCount == 0 {
		return nil, ErrEmptyRange
	}
	if cfg.FirstTokenID+cfg.TokenCount < cfg.FirstTokenID {
		return nil, ErrRangeOverrun
	}
	if cfg.AttemptCost == 0 {
		cfg.AttemptCost = selection.DefaultAttemptCost
	}
	if cfg.FallbackBudget == 0 {
		cfg.FallbackBudget = hooks.DefaultSelectionBudget
	}
	return &Hook{
		address:        cfg.Address,
		pool:           cfg.Pool,
		owners:         cfg.Owners,
		first:          cfg.FirstTokenID,
		count:          cfg.TokenCount,
		verifier:       cfg.Verifier,
		attemptCost:    cfg.AttemptCost,
		fallbackBudget: cfg.FallbackBudget,
		state:          st,
		emitter:        events.NoopEmitter{},
		telemetry:      metrics.Hooks(),
	}, nil
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

type pick struct {
	Recipient [20]byte
	TokenID   uint64
	Attempts  uint64
	Fallback  bool
}

// Pick resolves the recipient of a prize. It reads only the finalized draw
// randomness and the token owner table.
func (h *Hook) Pick(ctx context.Context, tier uint8, prizeIndex uint32) (selection.Result, error) {
	random, err := h.pool.GetWinningRandomNumber()
	if err != nil {
		return selection.Result{}, err
	}
	budget := selection.BudgetFrom(ctx, h.fallbackBudget)
	req := selection.Request{Random: random, Tier: tier, PrizeIndex: prizeIndex, CandidateCount: h.count, AttemptCost: h.attemptCost}
	return selection.Select(ctx, budget, req, h.address, func(index uint64) ([20]byte, bool, error) {
		owner, ok, err := h.owners.OwnerOf(h.first + index)
		if err != nil || !ok || types.IsZeroAddress(owner) {
			return [20]byte{}, false, err
		}
		return owner, true, nil
	})
}

func (h *Hook) BeforeClaimPrize(ctx context.Context, call hooks.BeforeCall) ([20]byte, []byte, error) {
	res, err := h.Pick(ctx, call.Tier, call.PrizeIndex)
	if err != nil {
		return [20]byte{}, nil, err
	}
	aux, err := hooks.EncodeAuxData(pick{
		Recipient: res.Candidate,
		TokenID:   h.first + res.Index,
		Attempts:  res.Attempts,
		Fallback:  res.Fallback,
	})
	if err != nil {
		return [20]byte{}, nil, err
	}
	return res.Candidate, aux, nil
}

func (h *Hook) AfterClaimPrize(ctx context.Context, call hooks.AfterCall) error {
	var p pick
	if err := hooks.DecodeAuxData(call.AuxData, &p); err != nil {
		return fmt.Errorf("%w: %v", verify.ErrDidNotReceivePrize, err)
	}
	if p.Fallback && p.Recipient != h.address {
		return fmt.Errorf("%w: fallback pick names %s", verify.ErrDidNotReceivePrize, types.HexAddress(p.Recipient))
	}
	drawID, err := h.verifier.Authenticate(verify.Settlement{
		Caller:            call.Vault,
		Winner:            call.Winner,
		Tier:              call.Tier,
		PrizeIndex:        call.PrizeIndex,
		Recipient:         call.Recipient,
		ExpectedRecipient: p.Recipient,
	})
	if err != nil {
		return err
	}
	if call.PrizeAmount == nil || call.PrizeAmount.Sign() == 0 {
		return nil
	}
	emitter := events.FromContext(ctx, h.emitter)
	resolved := events.SelectionResolved{
		Hook:       h.address,
		Vault:      call.Vault,
		Winner:     call.Winner,
		DrawID:     drawID,
		Tier:       call.Tier,
		PrizeIndex: call.PrizeIndex,
		Recipient:  p.Recipient,
		Attempts:   p.Attempts,
		Fallback:   p.Fallback,
	}
	if !p.Fallback {
		resolved.CandidateIndex = p.TokenID
	}
	emitter.Emit(resolved)
	h.telemetry.RecordSelection("raffle", p.Attempts, p.Fallback)

	amount := new(big.Int).Set(call.PrizeAmount)
	if !p.Fallback {
		emitter.Emit(events.PrizeRedirected{
			Hook:       h.address,
			Vault:      call.Vault,
			Winner:     call.Winner,
			Recipient:  p.Recipient,
			Tier:       call.Tier,
			PrizeIndex: call.PrizeIndex,
			Amount:     amount,
		})
		return nil
	}
	if err := h.state.Transfer(h.pool.PrizeToken(), h.address, h.pool.Address(), amount); err != nil {
		return err
	}
	if _, err := h.pool.ContributePrizeTokens(call.Vault, amount); err != nil {
		return err
	}
	emitter.Emit(events.PrizeContributed{Hook: h.address, Vault: call.Vault, Winner: call.Winner, Amount: amount})
	return nil
}

var _ hooks.Hook = (*Hook)(nil)

package compound

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/core/types"
	"pthooks/native/fees"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
	"pthooks/observability/metrics"
)

var (
	ErrNilState      = errors.New("compound: state not configured")
	ErrZeroAddress   = errors.New("compound: zero address")
	ErrAssetMismatch = errors.New("compound: vault asset does not match prize token")
	ErrNothingIdle   = errors.New("compound: no idle prize tokens")
)

const (
	ModeConverted = "converted"
	ModeFallback  = "fallback"
)

type hookState interface {
	Balance(asset string, addr [20]byte) (*big.Int, error)
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
}

// Config captures the construction parameters of a Hook.
type Config struct {
	Address  [20]byte
	Pool     prizepool.PrizePool
	Vault    prizepool.Vault
	Schedule fees.Schedule
	Verifier *verify.Verifier
}

// Hook compounds prizes into vault shares. Prizes are redirected to the
// hook, which pays the winner in shares drawn from its own share reserve and
// keeps the prize tokens. The claimer receives a recycle reward out of the
// fee. When the reserve cannot cover the payout the winner receives the raw
// prize with no fee.
type Hook struct {
	address    [20]byte
	prizeToken string
	pool       prizepool.PrizePool
	vault      prizepool.Vault
	schedule   fees.Schedule
	verifier   *verify.Verifier
	state      hookState
	emitter    events.Emitter
	telemetry  *metrics.HookMetrics
}

// New constructs a compounding hook. Invalid configuration is rejected here
// so a misconfigured hook never exists.
func New(st hookState, cfg Config) (*Hook, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(cfg.Address) {
		return nil, fmt.Errorf("%w: hook", ErrZeroAddress)
	}
	if cfg.Pool == nil || cfg.Vault == nil || cfg.Verifier == nil {
		return nil, fmt.Errorf("%w: pool, vault and verifier are required", ErrZeroAddress)
	}
	if types.IsZeroAddress(cfg.Vault.Address()) {
		return nil, fmt.Errorf("%w: vault", ErrZeroAddress)
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	prizeToken := state.NormalizeAsset(cfg.Pool.PrizeToken())
	if state.NormalizeAsset(cfg.Vault.Asset()) != prizeToken {
		return nil, fmt.Errorf("%w: %s != %s", ErrAssetMismatch, cfg.Vault.Asset(), prizeToken)
	}
	return &Hook{
		address:    cfg.Address,
		prizeToken: prizeToken,
		pool:       cfg.Pool,
		vault:      cfg.Vault,
		schedule:   cfg.Schedule,
		verifier:   cfg.Verifier,
		state:      st,
		emitter:    events.NoopEmitter{},
		telemetry:  metrics.Hooks(),
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

func (h *Hook) Address() [20]byte              { return h.address }
func (h *Hook) Schedule() fees.Schedule        { return h.schedule }
func (h *Hook) Vault() prizepool.Vault         { return h.vault }
func (h *Hook) PrizePool() prizepool.PrizePool { return h.pool }

type auxPayload struct {
	Claimer [20]byte
}

// BeforeClaimPrize redirects the prize to the hook and records the claimer
// so the recycle reward can be paid after settlement.
func (h *Hook) BeforeClaimPrize(_ context.Context, call hooks.BeforeCall) ([20]byte, []byte, error) {
	aux, err := hooks.EncodeAuxData(auxPayload{Claimer: call.Claimer})
	if err != nil {
		return [20]byte{}, nil, err
	}
	return h.address, aux, nil
}

// AfterClaimPrize authenticates the claim and settles it.
func (h *Hook) AfterClaimPrize(ctx context.Context, call hooks.AfterCall) error {
	drawID, err := h.verifier.Authenticate(verify.Settlement{
		Caller:            call.Vault,
		Winner:            call.Winner,
		Tier:              call.Tier,
		PrizeIndex:        call.PrizeIndex,
		Recipient:         call.Recipient,
		ExpectedRecipient: h.address,
	})
	if err != nil {
		return err
	}
	if call.PrizeAmount == nil || call.PrizeAmount.Sign() == 0 {
		return nil
	}
	var aux auxPayload
	if err := hooks.DecodeAuxData(call.AuxData, &aux); err != nil {
		return err
	}
	emitter := events.FromContext(ctx, h.emitter)

	split := h.schedule.Split(call.PrizeAmount)
	shares, err := h.vault.ConvertToShares(split.Net)
	if err != nil {
		return err
	}
	available, err := h.vault.BalanceOf(h.address)
	if err != nil {
		return err
	}

	settled := events.PrizeSettled{
		Hook:            h.address,
		Vault:           call.Vault,
		Winner:          call.Winner,
		DrawID:          drawID,
		Tier:            call.Tier,
		PrizeIndex:      call.PrizeIndex,
		PrizeAmount:     new(big.Int).Set(call.PrizeAmount),
		RewardRecipient: aux.Claimer,
	}
	if available.Cmp(shares) < 0 {
		if err := h.state.Transfer(h.prizeToken, h.address, call.Winner, call.PrizeAmount); err != nil {
			return err
		}
		emitter.Emit(events.LiquidityFallback{
			Hook:        h.address,
			Winner:      call.Winner,
			PrizeAmount: new(big.Int).Set(call.PrizeAmount),
			Required:    shares,
			Available:   available,
		})
		settled.Fee = big.NewInt(0)
		settled.Reward = big.NewInt(0)
		settled.Payout = new(big.Int).Set(call.PrizeAmount)
		settled.PayoutAsset = h.prizeToken
		emitter.Emit(settled)
		h.telemetry.RecordSettlement("compound", ModeFallback, nil, nil)
		return nil
	}

	if err := h.vault.TransferShares(h.address, call.Winner, shares); err != nil {
		return err
	}
	reward := split.Reward
	if types.IsZeroAddress(aux.Claimer) {
		reward = big.NewInt(0)
	}
	if reward.Sign() > 0 {
		if err := h.state.Transfer(h.prizeToken, h.address, aux.Claimer, reward); err != nil {
			return err
		}
	}
	settled.Fee = split.Fee
	settled.Reward = reward
	settled.Payout = shares
	settled.PayoutAsset = state.NormalizeAsset(h.vault.ShareToken())
	emitter.Emit(settled)
	h.telemetry.RecordSettlement("compound", ModeConverted, split.Fee, reward)
	return nil
}

// Replenish deposits the prize tokens the hook holds into the vault,
// minting shares to the hook's own reserve. It returns the shares minted.
func (h *Hook) Replenish() (*big.Int, error) {
	idle, err := h.state.Balance(h.prizeToken, h.address)
	if err != nil {
		return nil, err
	}
	if idle.Sign() == 0 {
		return nil, ErrNothingIdle
	}
	return h.vault.Deposit(h.address, h.address, idle)
}

// Reserve returns the share balance available to pay winners.
func (h *Hook) Reserve() (*big.Int, error) {
	return h.vault.BalanceOf(h.address)
}

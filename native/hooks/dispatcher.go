package hooks

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/prizepool"
	"pthooks/native/selection"
	"pthooks/native/verify"
	"pthooks/observability/metrics"
)

// DefaultSelectionBudget is the operations budget attached to a claim when
// the caller supplies none.
const DefaultSelectionBudget = 256

type journal interface {
	Snapshot() int
	RevertToSnapshot(id int) error
}

// ClaimRequest identifies the prize a claimer wants to claim through the
// vault.
type ClaimRequest struct {
	Winner          [20]byte
	Tier            uint8
	PrizeIndex      uint32
	Reward          *big.Int
	RewardRecipient [20]byte
}

// ClaimResult describes a completed claim.
type ClaimResult struct {
	DrawID      uint32
	Recipient   [20]byte
	PrizeAmount *big.Int
	Reward      *big.Int
	AuxData     []byte
}

// Dispatcher is the vault side of the hook protocol. For each claim it runs
// the winner's before hook, asks the prize pool to pay the chosen recipient,
// then runs the after hook. The three steps share one state snapshot and
// are rolled back together when any of them fails.
type Dispatcher struct {
	vault     [20]byte
	state     journal
	pool      prizepool.PrizePool
	registry  *Registry
	emitter   events.Emitter
	budget    uint64
	telemetry *metrics.HookMetrics
	tracer    trace.Tracer
}

// NewDispatcher constructs the dispatcher of vault.
func NewDispatcher(st journal, vault [20]byte, pool prizepool.PrizePool, registry *Registry) (*Dispatcher, error) {
	if st == nil || pool == nil || registry == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(vault) {
		return nil, ErrZeroAddress
	}
	return &Dispatcher{
		vault:     vault,
		state:     st,
		pool:      pool,
		registry:  registry,
		emitter:   events.NoopEmitter{},
		budget:    DefaultSelectionBudget,
		telemetry: metrics.Hooks(),
		tracer:    otel.Tracer("pthooks/hooks"),
	}, nil
}

// SetEmitter configures the event emitter used by the dispatcher.
func (d *Dispatcher) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		d.emitter = events.NoopEmitter{}
		return
	}
	d.emitter = emitter
}

// SetTracerProvider replaces the global tracer provider for claim spans.
func (d *Dispatcher) SetTracerProvider(provider trace.TracerProvider) {
	if provider == nil {
		d.tracer = otel.Tracer("pthooks/hooks")
		return
	}
	d.tracer = provider.Tracer("pthooks/hooks")
}

// SetSelectionBudget sets the operations budget given to each claim.
func (d *Dispatcher) SetSelectionBudget(units uint64) {
	d.budget = units
}

// Vault returns the vault address the dispatcher claims for.
func (d *Dispatcher) Vault() [20]byte { return d.vault }

// Registry returns the hook registry consulted by the dispatcher.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// ClaimPrize executes one claim atomically. On failure every state change
// and event of the claim is discarded, a ClaimRejected event is emitted and
// a *ClaimError is returned.
func (d *Dispatcher) ClaimPrize(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := d.tracer.Start(ctx, "hooks.claim_prize", trace.WithAttributes(
		attribute.String("claim.vault", types.HexAddress(d.vault)),
		attribute.String("claim.winner", types.HexAddress(req.Winner)),
		attribute.Int("claim.tier", int(req.Tier)),
		attribute.Int64("claim.prize_index", int64(req.PrizeIndex)),
	))
	defer span.End()
	parent := events.FromContext(ctx, d.emitter)
	buffer := &events.Recorder{}
	ctx = events.WithEmitter(ctx, buffer)
	if !selection.HasBudget(ctx) {
		ctx = selection.WithBudget(ctx, selection.NewBudget(d.budget))
	}

	snap := d.state.Snapshot()
	result, err := d.guardedClaim(ctx, req)
	if err != nil {
		if revertErr := d.state.RevertToSnapshot(snap); revertErr != nil {
			err = errors.Join(err, revertErr)
		}
		reason := Classify(err)
		d.telemetry.RecordRejection(reason)
		claimErr := &ClaimError{Vault: d.vault, Winner: req.Winner, Tier: req.Tier, PrizeIndex: req.PrizeIndex, Reason: reason, Err: err}
		if reason == ReasonRepeatHook {
			drawID, _ := d.pool.GetLastAwardedDrawID()
			parent.Emit(events.ReplayRejected{Vault: d.vault, Winner: req.Winner, DrawID: drawID, Tier: req.Tier, PrizeIndex: req.PrizeIndex})
		}
		parent.Emit(events.ClaimRejected{Vault: d.vault, Winner: req.Winner, Tier: req.Tier, PrizeIndex: req.PrizeIndex, Reason: reason, Error: err.Error()})
		span.RecordError(err)
		span.SetAttributes(attribute.String("claim.reason", reason))
		span.SetStatus(codes.Error, reason)
		return ClaimResult{}, claimErr
	}
	buffer.Flush(parent)
	parent.Emit(events.PrizeClaimed{
		Vault:           d.vault,
		Winner:          req.Winner,
		Recipient:       result.Recipient,
		DrawID:          result.DrawID,
		Tier:            req.Tier,
		PrizeIndex:      req.PrizeIndex,
		Amount:          result.PrizeAmount,
		Reward:          result.Reward,
		RewardRecipient: req.RewardRecipient,
	})
	span.SetAttributes(
		attribute.String("claim.recipient", types.HexAddress(result.Recipient)),
		attribute.String("claim.amount", result.PrizeAmount.String()),
	)
	span.SetStatus(codes.Ok, "claimed")
	return result, nil
}

// guardedClaim turns a panic raised by a hook into an error so the claim is
// rolled back like any other failure.
func (d *Dispatcher) guardedClaim(ctx context.Context, req ClaimRequest) (result ClaimResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = ClaimResult{}
			err = fmt.Errorf("%w: %v", ErrHookPanicked, r)
		}
	}()
	return d.claim(ctx, req)
}

func (d *Dispatcher) claim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	c := &types.Claim{
		Vault:        d.vault,
		Winner:       req.Winner,
		Tier:         req.Tier,
		PrizeIndex:   req.PrizeIndex,
		RewardAmount: big.NewInt(0),
		Recipient:    req.Winner,
	}
	if req.Reward != nil {
		c.RewardAmount.Set(req.Reward)
	}
	settings, err := d.registry.GetHooks(d.vault, req.Winner)
	if err != nil {
		return ClaimResult{}, err
	}
	var hook Hook
	if settings.UseBeforeClaimPrize || settings.UseAfterClaimPrize {
		if hook, err = d.registry.Resolve(settings.Implementation); err != nil {
			return ClaimResult{}, err
		}
	}

	if settings.UseBeforeClaimPrize {
		redirect, aux, err := hook.BeforeClaimPrize(ctx, BeforeCall{
			Vault:      c.Vault,
			Winner:     c.Winner,
			Tier:       c.Tier,
			PrizeIndex: c.PrizeIndex,
			Reward:     new(big.Int).Set(c.RewardAmount),
			Claimer:    req.RewardRecipient,
		})
		if err != nil {
			return ClaimResult{}, err
		}
		if !types.IsZeroAddress(redirect) {
			c.Recipient = redirect
		}
		c.AuxData = aux
	}
	if err := ctx.Err(); err != nil {
		return ClaimResult{}, err
	}

	if c.DrawID, err = d.pool.GetLastAwardedDrawID(); err != nil {
		return ClaimResult{}, err
	}
	amount, err := d.pool.ClaimPrize(c.Vault, c.Winner, c.Tier, c.PrizeIndex, c.Recipient, c.RewardAmount, req.RewardRecipient)
	if err != nil {
		return ClaimResult{}, err
	}
	if amount == nil {
		return ClaimResult{}, ErrMissingPrizeAmt
	}
	c.PrizeAmount = amount

	if settings.UseAfterClaimPrize {
		if err := hook.AfterClaimPrize(ctx, AfterCall{
			Vault:       c.Vault,
			Winner:      c.Winner,
			Tier:        c.Tier,
			PrizeIndex:  c.PrizeIndex,
			PrizeAmount: new(big.Int).Set(c.PrizeAmount),
			Recipient:   c.Recipient,
			AuxData:     c.AuxData,
		}); err != nil {
			return ClaimResult{}, err
		}
	}
	return ClaimResult{DrawID: c.DrawID, Recipient: c.Recipient, PrizeAmount: c.PrizeAmount, Reward: c.RewardAmount, AuxData: c.AuxData}, nil
}

// IsRepeat reports whether err is a replay rejection.
func IsRepeat(err error) bool {
	return errors.Is(err, verify.ErrRepeatHook)
}

package claimer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/observability/logging"
	"pthooks/observability/metrics"
)

var (
	// ErrReentrant is returned when a batch is started from inside another
	// batch, typically by a recipient hook calling back into the claimer.
	ErrReentrant     = errors.New("claimer: batch already in progress")
	ErrNotConfigured = errors.New("claimer: prize pool not configured")
	ErrAssetMismatch = errors.New("claimer: reinvest vault asset does not match prize token")
)

// PrizeClaimer claims one prize through a vault. hooks.Dispatcher
// implements it.
type PrizeClaimer interface {
	Vault() [20]byte
	ClaimPrize(ctx context.Context, req hooks.ClaimRequest) (hooks.ClaimResult, error)
}

// Winner identifies one prize of a batch.
type Winner struct {
	Winner     [20]byte
	PrizeIndex uint32
}

// Batch lists prizes of a single tier claimed together.
type Batch struct {
	Tier            uint8
	Winners         []Winner
	RewardRecipient [20]byte
}

// ItemResult is the outcome of one prize in a batch.
type ItemResult struct {
	Winner     [20]byte
	PrizeIndex uint32
	Reward     *big.Int
	Err        error
}

// Report summarises a batch. TotalReward and Reinvested count successful
// claims only.
type Report struct {
	BatchID     string
	Decision    Decision
	Claimed     uint64
	Failed      uint64
	TotalReward *big.Int
	Reinvested  *big.Int
	Items       []ItemResult
}

// Claimer claims batches of prizes, choosing the reward for each batch from
// the ramp schedule. A failing prize never aborts its siblings.
type Claimer struct {
	address  [20]byte
	pool     prizepool.PrizePool
	ramp     Ramp
	reinvest prizepool.Vault
	logger   *slog.Logger
	emitter  events.Emitter
	metrics  *metrics.ClaimerMetrics
	tracer   trace.Tracer
	now      func() time.Time

	active atomic.Bool
}

// Option customises the claimer instance.
type Option func(*Claimer)

// WithRamp overrides the default reward ramp.
func WithRamp(r Ramp) Option {
	return func(c *Claimer) { c.ramp = r }
}

// WithReinvestVault sets the vault normal-mode rewards are deposited into.
func WithReinvestVault(v prizepool.Vault) Option {
	return func(c *Claimer) { c.reinvest = v }
}

// WithLogger supplies the logger used for per-item failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Claimer) { c.logger = l }
}

// WithEmitter supplies the event emitter.
func WithEmitter(e events.Emitter) Option {
	return func(c *Claimer) { c.emitter = e }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.ClaimerMetrics) Option {
	return func(c *Claimer) { c.metrics = m }
}

// WithTracerProvider sets the provider batch spans are started from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Claimer) {
		if tp != nil {
			c.tracer = tp.Tracer("pthooks/claimer")
		}
	}
}

// WithClock sets the function used to derive timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Claimer) { c.now = clock }
}

// New constructs a claimer acting from address.
func New(address [20]byte, pool prizepool.PrizePool, opts ...Option) (*Claimer, error) {
	if pool == nil {
		return nil, ErrNotConfigured
	}
	if types.IsZeroAddress(address) {
		return nil, hooks.ErrZeroAddress
	}
	c := &Claimer{
		address: address,
		pool:    pool,
		ramp:    DefaultRamp(),
		metrics: metrics.Claimer(),
		tracer:  otel.Tracer("pthooks/claimer"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.emitter == nil {
		c.emitter = events.NoopEmitter{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if err := c.ramp.Validate(); err != nil {
		return nil, err
	}
	if c.reinvest != nil && state.NormalizeAsset(c.reinvest.Asset()) != state.NormalizeAsset(pool.PrizeToken()) {
		return nil, fmt.Errorf("%w: %s != %s", ErrAssetMismatch, c.reinvest.Asset(), pool.PrizeToken())
	}
	return c, nil
}

// Address returns the account the claimer acts from.
func (c *Claimer) Address() [20]byte { return c.address }

// Decide returns the claim decision for tier at the current time.
func (c *Claimer) Decide(tier uint8) (Decision, error) {
	drawID, err := c.pool.GetLastAwardedDrawID()
	if err != nil {
		return Decision{}, err
	}
	elapsed := c.now().Unix() - c.pool.DrawClosesAt(drawID)
	return c.ramp.Decide(c.pool.IsCanaryTier(tier), elapsed, c.pool.DrawPeriodSeconds())
}

// ClaimPrizes claims every prize of batch through vault. Individual failures
// are logged, reported and skipped. The call fails as a whole only when the
// batch cannot start, including when another batch is already running on
// this claimer.
func (c *Claimer) ClaimPrizes(ctx context.Context, vault PrizeClaimer, batch Batch) (Report, error) {
	if !c.active.CompareAndSwap(false, true) {
		return Report{}, ErrReentrant
	}
	defer c.active.Store(false)
	if ctx == nil {
		ctx = context.Background()
	}
	if vault == nil {
		return Report{}, ErrNotConfigured
	}

	decision, err := c.Decide(batch.Tier)
	if err != nil {
		return Report{}, err
	}
	size, err := c.pool.GetTierPrizeSize(batch.Tier)
	if err != nil {
		return Report{}, err
	}
	reward := decision.Reward(size)
	rewardRecipient := batch.RewardRecipient
	if decision.Reinvest() {
		if c.reinvest == nil {
			reward = big.NewInt(0)
		}
		rewardRecipient = c.address
	}

	batchID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "claimer.claim_prizes", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.String("batch.vault", types.HexAddress(vault.Vault())),
		attribute.Int("batch.tier", int(batch.Tier)),
		attribute.String("batch.mode", string(decision.Mode)),
		attribute.Int("batch.size", len(batch.Winners)),
	))
	defer span.End()

	report := Report{
		BatchID:     batchID,
		Decision:    decision,
		TotalReward: big.NewInt(0),
		Reinvested:  big.NewInt(0),
		Items:       make([]ItemResult, 0, len(batch.Winners)),
	}
	pending := big.NewInt(0)
	logger := c.logger.With(
		slog.String("batch", report.BatchID),
		logging.Address(logging.KeyVault, vault.Vault()),
		slog.Int(logging.KeyTier, int(batch.Tier)),
		slog.String("mode", string(decision.Mode)),
	)

	for _, w := range batch.Winners {
		item := ItemResult{Winner: w.Winner, PrizeIndex: w.PrizeIndex, Reward: big.NewInt(0)}
		if err := ctx.Err(); err != nil {
			item.Err = err
		} else {
			res, err := vault.ClaimPrize(ctx, hooks.ClaimRequest{
				Winner:          w.Winner,
				Tier:            batch.Tier,
				PrizeIndex:      w.PrizeIndex,
				Reward:          reward,
				RewardRecipient: rewardRecipient,
			})
			if err != nil {
				item.Err = err
			} else if res.Reward != nil {
				item.Reward.Set(res.Reward)
			}
		}
		if item.Err != nil {
			report.Failed++
			logger.Warn("prize claim failed",
				logging.Address(logging.KeyWinner, w.Winner),
				slog.Int64(logging.KeyPrizeIndex, int64(w.PrizeIndex)),
				logging.Err(item.Err),
			)
			c.emitter.Emit(events.BatchClaimFailed{
				BatchID:    report.BatchID,
				Vault:      vault.Vault(),
				Winner:     w.Winner,
				Tier:       batch.Tier,
				PrizeIndex: w.PrizeIndex,
				Reason:     hooks.Classify(item.Err),
			})
		} else {
			report.Claimed++
			if decision.Reinvest() {
				pending.Add(pending, item.Reward)
			} else {
				report.TotalReward.Add(report.TotalReward, item.Reward)
			}
		}
		report.Items = append(report.Items, item)
	}

	var reinvestErr error
	if pending.Sign() > 0 {
		if _, err := c.reinvest.Deposit(c.address, batch.RewardRecipient, pending); err != nil {
			reinvestErr = fmt.Errorf("claimer: reinvest: %w", err)
			logger.Error("reinvest failed", logging.Amount("amount", pending), logging.Err(err))
		} else {
			report.Reinvested.Set(pending)
		}
	}

	c.emitter.Emit(events.BatchClaimSettled{
		BatchID:         report.BatchID,
		Vault:           vault.Vault(),
		Tier:            batch.Tier,
		Mode:            string(decision.Mode),
		Claimed:         report.Claimed,
		Failed:          report.Failed,
		TotalReward:     new(big.Int).Set(report.TotalReward),
		Reinvested:      new(big.Int).Set(report.Reinvested),
		RewardRecipient: batch.RewardRecipient,
	})
	c.metrics.RecordBatch(string(decision.Mode), report.Claimed, report.Failed, decision.RateWad(), report.TotalReward, report.Reinvested)
	logger.Info("batch settled",
		slog.Uint64("claimed", report.Claimed),
		slog.Uint64("failed", report.Failed),
		logging.Amount("reward", report.TotalReward),
		logging.Amount("reinvested", report.Reinvested),
		slog.String("rate", decision.Rate.String()),
	)
	span.SetAttributes(
		attribute.Int64("batch.claimed", int64(report.Claimed)),
		attribute.Int64("batch.failed", int64(report.Failed)),
		attribute.String("batch.reward", report.TotalReward.String()),
	)
	if reinvestErr != nil {
		span.RecordError(reinvestErr)
		span.SetStatus(codes.Error, reinvestErr.Error())
	} else {
		span.SetStatus(codes.Ok, "batch settled")
	}
	return report, reinvestErr
}

var _ PrizeClaimer = (*hooks.Dispatcher)(nil)

package claimer

import (
	"bytes"
	"context"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
)

var (
	poolAddr    = [20]byte{0x50}
	vaultAddr   = [20]byte{0x51}
	hookAddr    = [20]byte{0x52}
	claimerAddr = [20]byte{0xc1}
	bot         = [20]byte{0xb7}
	alice       = [20]byte{0xa1}
	bob         = [20]byte{0xb0}
	mallory     = [20]byte{0x66}
)

const (
	firstOpens = 1_000
	period     = 100_000
	closesAt   = firstOpens + period
)

type fixture struct {
	st         *state.Manager
	pool       *prizepool.Pool
	vault      *prizepool.ShareVault
	registry   *hooks.Registry
	dispatcher *hooks.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.NewManager(nil)
	pool, err := prizepool.NewPool(st, prizepool.Config{
		Address:    poolAddr,
		PrizeToken: "POOL",
		Tiers: []prizepool.Tier{
			{PrizeSize: big.NewInt(10_000), PrizeCount: 1},
			{PrizeSize: big.NewInt(100), PrizeCount: 4},
			{PrizeSize: big.NewInt(5), PrizeCount: 16},
		},
		FirstDrawOpensAt:  firstOpens,
		DrawPeriodSeconds: period,
	})
	require.NoError(t, err)
	require.NoError(t, st.Mint("POOL", poolAddr, big.NewInt(100_000)))
	_, err = pool.AwardDraw(uint256.NewInt(5), []prizepool.Win{
		{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 0},
		{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 1},
		{Vault: vaultAddr, Winner: bob, Tier: 1, PrizeIndex: 2},
		{Vault: vaultAddr, Winner: mallory, Tier: 1, PrizeIndex: 3},
		{Vault: vaultAddr, Winner: alice, Tier: 0, PrizeIndex: 0},
		{Vault: vaultAddr, Winner: bob, Tier: 2, PrizeIndex: 7},
	})
	require.NoError(t, err)
	twab, err := prizepool.NewTwab(st)
	require.NoError(t, err)
	vault, err := prizepool.NewShareVault(st, twab, vaultAddr, "POOL", "PPOOL")
	require.NoError(t, err)
	registry, err := hooks.NewRegistry(st)
	require.NoError(t, err)
	dispatcher, err := hooks.NewDispatcher(st, vaultAddr, pool, registry)
	require.NoError(t, err)
	return &fixture{st: st, pool: pool, vault: vault, registry: registry, dispatcher: dispatcher}
}

func clockAt(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func (f *fixture) balance(t *testing.T, asset string, addr [20]byte) int64 {
	t.Helper()
	bal, err := f.st.Balance(asset, addr)
	require.NoError(t, err)
	return bal.Int64()
}

func TestBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	rec := &events.Recorder{}
	c, err := New(claimerAddr, f.pool,
		WithClock(clockAt(closesAt+period)),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		WithEmitter(rec),
	)
	require.NoError(t, err)

	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{
		Tier: 1,
		Winners: []Winner{
			{Winner: alice, PrizeIndex: 0},
			{Winner: bob, PrizeIndex: 3},
			{Winner: alice, PrizeIndex: 1},
			{Winner: bob, PrizeIndex: 2},
			{Winner: alice, PrizeIndex: 0},
		},
		RewardRecipient: bot,
	})
	require.NoError(t, err)
	require.Equal(t, ModeFallback, report.Decision.Mode)
	require.Equal(t, uint64(3), report.Claimed)
	require.Equal(t, uint64(2), report.Failed)
	require.Equal(t, int64(30), report.TotalReward.Int64())
	require.Equal(t, int64(30), f.balance(t, "POOL", bot))
	require.Equal(t, int64(180), f.balance(t, "POOL", alice))
	require.Equal(t, int64(90), f.balance(t, "POOL", bob))
	require.NotEmpty(t, report.BatchID)

	require.Error(t, report.Items[1].Err)
	require.Zero(t, report.Items[1].Reward.Sign())
	require.Error(t, report.Items[4].Err)

	failed := rec.OfType(events.TypeBatchClaimFailed)
	require.Len(t, failed, 2)
	require.Equal(t, hooks.ReasonDidNotWin, failed[0].(events.BatchClaimFailed).Reason)
	require.Equal(t, hooks.ReasonAlreadyClaimed, failed[1].(events.BatchClaimFailed).Reason)
	settled := rec.OfType(events.TypeBatchClaimSettled)
	require.Len(t, settled, 1)
	require.Equal(t, int64(30), settled[0].(events.BatchClaimSettled).TotalReward.Int64())

	require.Equal(t, 2, strings.Count(logs.String(), "prize claim failed"))
	require.Contains(t, logs.String(), `"level":"WARN"`)
}

type reentrantHook struct {
	claimer *Claimer
	vault   PrizeClaimer
	calls   int
}

func (h *reentrantHook) BeforeClaimPrize(context.Context, hooks.BeforeCall) ([20]byte, []byte, error) {
	return [20]byte{}, nil, nil
}

func (h *reentrantHook) AfterClaimPrize(ctx context.Context, _ hooks.AfterCall) error {
	h.calls++
	_, err := h.claimer.ClaimPrizes(ctx, h.vault, Batch{Tier: 1, Winners: []Winner{{Winner: alice, PrizeIndex: 1}}, RewardRecipient: mallory})
	return err
}

func TestReentrantBatchIsRejected(t *testing.T) {
	f := newFixture(t)
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt+period)))
	require.NoError(t, err)
	hook := &reentrantHook{claimer: c, vault: f.dispatcher}
	require.NoError(t, f.registry.Register(hookAddr, hook))
	require.NoError(t, f.registry.SetHooks(vaultAddr, mallory, state.HookSettings{UseAfterClaimPrize: true, Implementation: hookAddr}))

	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{
		Tier: 1,
		Winners: []Winner{
			{Winner: mallory, PrizeIndex: 3},
			{Winner: alice, PrizeIndex: 0},
		},
		RewardRecipient: bot,
	})
	require.NoError(t, err)
	require.Equal(t, 1, hook.calls)
	require.ErrorIs(t, report.Items[0].Err, ErrReentrant)
	require.Equal(t, uint64(1), report.Claimed)
	require.Equal(t, int64(10), report.TotalReward.Int64())
	require.Zero(t, f.balance(t, "POOL", mallory))

	claimed, err := f.pool.WasClaimed(vaultAddr, alice, 1, 1)
	require.NoError(t, err)
	require.False(t, claimed)

	// The guard is released once the batch returns.
	report, err = c.ClaimPrizes(context.Background(), f.dispatcher, Batch{Tier: 1, Winners: []Winner{{Winner: alice, PrizeIndex: 1}}, RewardRecipient: bot})
	require.NoError(t, err)
	require.Equal(t, uint64(1), report.Claimed)
}

type panickingHook struct{}

func (panickingHook) BeforeClaimPrize(context.Context, hooks.BeforeCall) ([20]byte, []byte, error) {
	return [20]byte{}, nil, nil
}

func (panickingHook) AfterClaimPrize(context.Context, hooks.AfterCall) error {
	panic("recipient hook blew up")
}

func TestPanickingHookDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	rec := &events.Recorder{}
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt+period)), WithEmitter(rec))
	require.NoError(t, err)
	require.NoError(t, f.registry.Register(hookAddr, panickingHook{}))
	require.NoError(t, f.registry.SetHooks(vaultAddr, mallory, state.HookSettings{UseAfterClaimPrize: true, Implementation: hookAddr}))

	var report Report
	require.NotPanics(t, func() {
		report, err = c.ClaimPrizes(context.Background(), f.dispatcher, Batch{
			Tier: 1,
			Winners: []Winner{
				{Winner: alice, PrizeIndex: 0},
				{Winner: mallory, PrizeIndex: 3},
				{Winner: bob, PrizeIndex: 2},
			},
			RewardRecipient: bot,
		})
	})
	require.NoError(t, err)
	require.Equal(t, uint64(2), report.Claimed)
	require.Equal(t, uint64(1), report.Failed)
	require.ErrorIs(t, report.Items[1].Err, hooks.ErrHookPanicked)
	require.Equal(t, int64(20), report.TotalReward.Int64())
	require.Zero(t, f.balance(t, "POOL", mallory))

	claimed, err := f.pool.WasClaimed(vaultAddr, mallory, 1, 3)
	require.NoError(t, err)
	require.False(t, claimed)
	failed := rec.OfType(events.TypeBatchClaimFailed)
	require.Len(t, failed, 1)
	require.Equal(t, hooks.ReasonHookFailed, failed[0].(events.BatchClaimFailed).Reason)
}

func TestBatchSpanCarriesBatchID(t *testing.T) {
	f := newFixture(t)
	spans := tracetest.NewSpanRecorder()
	c, err := New(claimerAddr, f.pool,
		WithClock(clockAt(closesAt+period)),
		WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))),
	)
	require.NoError(t, err)

	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{Tier: 1, Winners: []Winner{{Winner: alice, PrizeIndex: 0}}, RewardRecipient: bot})
	require.NoError(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "claimer.claim_prizes", ended[0].Name())
	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, report.BatchID, attrs["batch.id"])
	require.Equal(t, "fallback", attrs["batch.mode"])
	require.Equal(t, "1", attrs["batch.claimed"])
}

func TestNormalModeReinvestsReward(t *testing.T) {
	f := newFixture(t)
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt+10)), WithReinvestVault(f.vault))
	require.NoError(t, err)

	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{
		Tier:            0,
		Winners:         []Winner{{Winner: alice, PrizeIndex: 0}},
		RewardRecipient: bot,
	})
	require.NoError(t, err)
	require.Equal(t, ModeNormal, report.Decision.Mode)
	require.Zero(t, report.TotalReward.Sign())
	require.Equal(t, int64(10), report.Reinvested.Int64())
	require.Zero(t, f.balance(t, "POOL", bot))
	require.Zero(t, f.balance(t, "POOL", claimerAddr))
	require.Equal(t, int64(10), f.balance(t, "PPOOL", bot))
	require.Equal(t, int64(9_990), f.balance(t, "POOL", alice))
}

func TestNormalModeWithoutVaultTakesNoReward(t *testing.T) {
	f := newFixture(t)
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt)))
	require.NoError(t, err)
	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{Tier: 1, Winners: []Winner{{Winner: alice, PrizeIndex: 0}}, RewardRecipient: bot})
	require.NoError(t, err)
	require.Equal(t, ModeNormal, report.Decision.Mode)
	require.Zero(t, report.TotalReward.Sign())
	require.Zero(t, report.Reinvested.Sign())
	require.Equal(t, int64(100), f.balance(t, "POOL", alice))
}

func TestCanaryTierPaysFullReward(t *testing.T) {
	f := newFixture(t)
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt)))
	require.NoError(t, err)
	report, err := c.ClaimPrizes(context.Background(), f.dispatcher, Batch{Tier: 2, Winners: []Winner{{Winner: bob, PrizeIndex: 7}}, RewardRecipient: bot})
	require.NoError(t, err)
	require.Equal(t, ModeCanary, report.Decision.Mode)
	require.Equal(t, int64(5), report.TotalReward.Int64())
	require.Equal(t, int64(5), f.balance(t, "POOL", bot))
}

func TestCanceledContextFailsRemainingItems(t *testing.T) {
	f := newFixture(t)
	c, err := New(claimerAddr, f.pool, WithClock(clockAt(closesAt+period)))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := c.ClaimPrizes(ctx, f.dispatcher, Batch{Tier: 1, Winners: []Winner{{Winner: alice, PrizeIndex: 0}}, RewardRecipient: bot})
	require.NoError(t, err)
	require.Equal(t, uint64(1), report.Failed)
	require.ErrorIs(t, report.Items[0].Err, context.Canceled)
}

func TestNewValidatesConfiguration(t *testing.T) {
	f := newFixture(t)
	_, err := New(claimerAddr, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	bad := DefaultRamp()
	bad.ThresholdBps = 0
	_, err = New(claimerAddr, f.pool, WithRamp(bad))
	require.ErrorIs(t, err, ErrInvalidThreshold)

	twab, err := prizepool.NewTwab(f.st)
	require.NoError(t, err)
	other, err := prizepool.NewShareVault(f.st, twab, [20]byte{0x77}, "USDC", "PUSDC")
	require.NoError(t, err)
	_, err = New(claimerAddr, f.pool, WithReinvestVault(other))
	require.ErrorIs(t, err, ErrAssetMismatch)
}

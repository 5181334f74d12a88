package redirect

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/core/types"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
)

var (
	poolAddr  = [20]byte{0x50}
	vaultAddr = [20]byte{0x51}
	hookAddr  = [20]byte{0x52}
	target    = [20]byte{0x53}
	alice     = [20]byte{0xa1}
)

type fixture struct {
	st         *state.Manager
	pool       *prizepool.Pool
	registry   *hooks.Registry
	dispatcher *hooks.Dispatcher
	recorder   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.NewManager(nil)
	pool, err := prizepool.NewPool(st, prizepool.Config{
		Address:    poolAddr,
		PrizeToken: "POOL",
		Tiers: []prizepool.Tier{
			{PrizeSize: big.NewInt(1_000), PrizeCount: 1},
			{PrizeSize: big.NewInt(100), PrizeCount: 4},
			{PrizeSize: big.NewInt(10), PrizeCount: 16},
		},
		DrawPeriodSeconds: 86_400,
	})
	require.NoError(t, err)
	require.NoError(t, st.Mint("POOL", poolAddr, big.NewInt(10_000)))
	_, err = pool.AwardDraw(uint256.NewInt(1), []prizepool.Win{
		{Vault: vaultAddr, Winner: alice, Tier: 0, PrizeIndex: 0},
		{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 3},
		{Vault: vaultAddr, Winner: alice, Tier: 2, PrizeIndex: 5},
	})
	require.NoError(t, err)
	registry, err := hooks.NewRegistry(st)
	require.NoError(t, err)
	dispatcher, err := hooks.NewDispatcher(st, vaultAddr, pool, registry)
	require.NoError(t, err)
	rec := &events.Recorder{}
	dispatcher.SetEmitter(rec)
	return &fixture{st: st, pool: pool, registry: registry, dispatcher: dispatcher, recorder: rec}
}

func (f *fixture) install(t *testing.T, hook *Hook) {
	t.Helper()
	require.NoError(t, f.registry.Register(hook.Address(), hook))
	require.NoError(t, f.registry.SetHooks(vaultAddr, alice, state.HookSettings{
		UseBeforeClaimPrize: true,
		UseAfterClaimPrize:  true,
		Implementation:      hook.Address(),
	}))
}

func (f *fixture) balance(t *testing.T, addr [20]byte) int64 {
	t.Helper()
	bal, err := f.st.Balance("POOL", addr)
	require.NoError(t, err)
	return bal.Int64()
}

func TestBurnRedirect(t *testing.T) {
	f := newFixture(t)
	hook, err := ToBurn(hookAddr)
	require.NoError(t, err)
	f.install(t, hook)

	res, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 0})
	require.NoError(t, err)
	require.Equal(t, types.BurnAddress, res.Recipient)
	require.Equal(t, int64(1_000), f.balance(t, types.BurnAddress))
	require.Zero(t, f.balance(t, alice))

	redirected := f.recorder.OfType(events.TypePrizeRedirected)
	require.Len(t, redirected, 1)
	evt := redirected[0].(events.PrizeRedirected)
	require.Equal(t, alice, evt.Winner)
	require.Equal(t, int64(1_000), evt.Amount.Int64())
}

func TestSelfRedirect(t *testing.T) {
	f := newFixture(t)
	hook, err := ToSelf(hookAddr)
	require.NoError(t, err)
	f.install(t, hook)
	_, err = f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 2, PrizeIndex: 5})
	require.NoError(t, err)
	require.Equal(t, int64(10), f.balance(t, hookAddr))
}

func TestDailyTierOnly(t *testing.T) {
	f := newFixture(t)
	daily, err := DailyTier(f.pool)
	require.NoError(t, err)
	require.Equal(t, uint8(1), daily)

	hook, err := ForDailyTier(hookAddr, target, f.pool)
	require.NoError(t, err)
	f.install(t, hook)

	res, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 1, PrizeIndex: 3})
	require.NoError(t, err)
	require.Equal(t, target, res.Recipient)

	res, err = f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 0})
	require.NoError(t, err)
	require.Equal(t, alice, res.Recipient)

	require.Equal(t, int64(100), f.balance(t, target))
	require.Equal(t, int64(1_000), f.balance(t, alice))
	require.Len(t, f.recorder.OfType(events.TypePrizeRedirected), 1)
}

func TestVerifiedRedirectRejectsRepeat(t *testing.T) {
	f := newFixture(t)
	verifier, err := verify.NewVerifier(nil, f.pool, verify.NewReplayGuard(f.st, hookAddr), verify.WithSingletonCaller(vaultAddr))
	require.NoError(t, err)
	hook, err := New(hookAddr, target, WithVerifier(verifier))
	require.NoError(t, err)

	call := hooks.AfterCall{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 3, PrizeAmount: big.NewInt(100), Recipient: target}
	require.NoError(t, hook.AfterClaimPrize(context.Background(), call))
	require.ErrorIs(t, hook.AfterClaimPrize(context.Background(), call), verify.ErrRepeatHook)

	call.Recipient = alice
	call.PrizeIndex = 0
	call.Tier = 0
	require.ErrorIs(t, hook.AfterClaimPrize(context.Background(), call), verify.ErrDidNotReceivePrize)
}

func TestUnverifiedRedirectChecksRecipient(t *testing.T) {
	hook, err := New(hookAddr, target)
	require.NoError(t, err)
	rec := &events.Recorder{}
	hook.SetEmitter(rec)
	err = hook.AfterClaimPrize(context.Background(), hooks.AfterCall{Vault: vaultAddr, Winner: alice, Recipient: alice})
	require.ErrorIs(t, err, verify.ErrDidNotReceivePrize)
	require.NoError(t, hook.AfterClaimPrize(context.Background(), hooks.AfterCall{Vault: vaultAddr, Winner: alice, PrizeAmount: big.NewInt(7), Recipient: target}))
	require.Len(t, rec.OfType(events.TypePrizeRedirected), 1)
}

func TestZeroPrizeRedirectIsSilent(t *testing.T) {
	f := newFixture(t)
	verifier, err := verify.NewVerifier(nil, f.pool, verify.NewReplayGuard(f.st, hookAddr), verify.WithSingletonCaller(vaultAddr))
	require.NoError(t, err)
	hook, err := New(hookAddr, target, WithVerifier(verifier))
	require.NoError(t, err)
	rec := &events.Recorder{}
	hook.SetEmitter(rec)

	call := hooks.AfterCall{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 3, PrizeAmount: big.NewInt(0), Recipient: target}
	require.NoError(t, hook.AfterClaimPrize(context.Background(), call))
	require.Empty(t, rec.OfType(events.TypePrizeRedirected))
	// The replay key is consumed before the zero check.
	require.ErrorIs(t, hook.AfterClaimPrize(context.Background(), call), verify.ErrRepeatHook)
}

func TestConstructorValidation(t *testing.T) {
	_, err := New([20]byte{}, target)
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = New(hookAddr, [20]byte{})
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = New(hookAddr, target, WithTiers())
	require.ErrorIs(t, err, ErrNoTiers)
}

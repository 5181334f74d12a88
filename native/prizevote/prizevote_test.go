package prizevote

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/native/access"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/verify"
)

var (
	poolAddr  = [20]byte{0x50}
	vaultAddr = [20]byte{0x51}
	hookAddr  = [20]byte{0x52}
	owner     = [20]byte{0x0f}
	alice     = [20]byte{0xa1}
	bob       = [20]byte{0xb0}
	carol     = [20]byte{0xc0}
)

func TestSetVoteEmitsChanges(t *testing.T) {
	st := state.NewManager(nil)
	votes, err := NewVotes(st, hookAddr)
	require.NoError(t, err)
	rec := &events.Recorder{}
	votes.SetEmitter(rec)

	require.NoError(t, votes.SetVote(alice, big.NewInt(500)))
	require.NoError(t, votes.SetVote(alice, big.NewInt(500)))
	require.NoError(t, votes.SetVote(alice, nil))
	require.ErrorIs(t, votes.SetVote(alice, big.NewInt(-1)), ErrNegativeValue)
	require.ErrorIs(t, votes.SetVote([20]byte{}, big.NewInt(1)), ErrZeroAddress)

	changes := rec.OfType(events.TypeVoteChanged)
	require.Len(t, changes, 2)
	first := changes[0].(events.VoteChanged)
	require.Zero(t, first.Previous.Sign())
	require.Equal(t, int64(500), first.Current.Int64())
	second := changes[1].(events.VoteChanged)
	require.Equal(t, int64(500), second.Previous.Int64())
	require.Zero(t, second.Current.Sign())

	vote, err := votes.VoteOf(alice)
	require.NoError(t, err)
	require.Zero(t, vote.Sign())
}

func TestPreferenceIsTwabWeighted(t *testing.T) {
	st := state.NewManager(nil)
	votes, err := NewVotes(st, hookAddr)
	require.NoError(t, err)
	twab, err := prizepool.NewTwab(st)
	require.NoError(t, err)
	twab.SetNowFunc(func() int64 { return 0 })
	require.NoError(t, twab.Mint(vaultAddr, alice, big.NewInt(100)))
	require.NoError(t, twab.Mint(vaultAddr, bob, big.NewInt(300)))

	require.NoError(t, votes.SetVote(alice, big.NewInt(10)))
	require.NoError(t, votes.SetVote(bob, big.NewInt(50)))
	require.NoError(t, votes.SetVote(carol, big.NewInt(1_000)))

	pref, err := votes.Preference(twab, vaultAddr, [][20]byte{alice, bob, carol, owner}, 0, 100)
	require.NoError(t, err)
	require.Equal(t, int64(40), pref.Int64())

	none, err := votes.Preference(twab, vaultAddr, [][20]byte{carol}, 0, 100)
	require.NoError(t, err)
	require.Zero(t, none.Sign())
}

type fixture struct {
	st         *state.Manager
	pool       *prizepool.Pool
	votes      *Votes
	registry   *hooks.Registry
	dispatcher *hooks.Dispatcher
	recorder   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.NewManager(nil)
	pool, err := prizepool.NewPool(st, prizepool.Config{
		Address:           poolAddr,
		PrizeToken:        "POOL",
		Tiers:             []prizepool.Tier{{PrizeSize: big.NewInt(1_000), PrizeCount: 1}, {PrizeSize: big.NewInt(20), PrizeCount: 4}},
		DrawPeriodSeconds: 86_400,
	})
	require.NoError(t, err)
	require.NoError(t, st.Mint("POOL", poolAddr, big.NewInt(5_000)))
	_, err = pool.AwardDraw(uint256.NewInt(11), []prizepool.Win{
		{Vault: vaultAddr, Winner: alice, Tier: 0, PrizeIndex: 0},
		{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 2},
	})
	require.NoError(t, err)

	votes, err := NewVotes(st, hookAddr)
	require.NoError(t, err)
	trust, err := access.NewTrustRegistry(st, "prizevote/trust", owner, nil)
	require.NoError(t, err)
	require.NoError(t, trust.Grant(owner, vaultAddr))
	verifier, err := verify.NewVerifier(trust, pool, verify.NewReplayGuard(st, hookAddr))
	require.NoError(t, err)
	hook, err := NewHook(st, hookAddr, pool, votes, verifier)
	require.NoError(t, err)

	registry, err := hooks.NewRegistry(st)
	require.NoError(t, err)
	require.NoError(t, registry.Register(hookAddr, hook))
	require.NoError(t, registry.SetHooks(vaultAddr, alice, state.HookSettings{UseBeforeClaimPrize: true, UseAfterClaimPrize: true, Implementation: hookAddr}))
	dispatcher, err := hooks.NewDispatcher(st, vaultAddr, pool, registry)
	require.NoError(t, err)
	rec := &events.Recorder{}
	dispatcher.SetEmitter(rec)
	return &fixture{st: st, pool: pool, votes: votes, registry: registry, dispatcher: dispatcher, recorder: rec}
}

func TestSmallPrizeIsForfeitedToPool(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.votes.SetVote(alice, big.NewInt(100)))

	res, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 1, PrizeIndex: 2})
	require.NoError(t, err)
	require.Equal(t, hookAddr, res.Recipient)

	contributed, err := f.pool.Contributions(vaultAddr)
	require.NoError(t, err)
	require.Equal(t, int64(20), contributed.Int64())
	bal, err := f.st.Balance("POOL", poolAddr)
	require.NoError(t, err)
	require.Equal(t, int64(5_000), bal.Int64())
	require.Len(t, f.recorder.OfType(events.TypePrizeContributed), 1)
}

func TestForfeitRequiresPrizeAtHook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.votes.SetVote(alice, big.NewInt(100)))
	require.NoError(t, f.registry.SetHooks(vaultAddr, alice, state.HookSettings{UseAfterClaimPrize: true, Implementation: hookAddr}))

	_, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 1, PrizeIndex: 2})
	require.ErrorIs(t, err, verify.ErrDidNotReceivePrize)
	var claimErr *hooks.ClaimError
	require.ErrorAs(t, err, &claimErr)
	require.Equal(t, hooks.ReasonDidNotReceivePrize, claimErr.Reason)

	bal, err := f.st.Balance("POOL", alice)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
	claimed, err := f.pool.WasClaimed(vaultAddr, alice, 1, 2)
	require.NoError(t, err)
	require.False(t, claimed)
	require.Empty(t, f.recorder.OfType(events.TypePrizeContributed))
}

func TestLargePrizeIsKept(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.votes.SetVote(alice, big.NewInt(100)))

	res, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 0})
	require.NoError(t, err)
	require.Equal(t, alice, res.Recipient)
	bal, err := f.st.Balance("POOL", alice)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), bal.Int64())
	require.Empty(t, f.recorder.OfType(events.TypePrizeContributed))
}

func TestNoVoteKeepsEveryPrize(t *testing.T) {
	f := newFixture(t)
	res, err := f.dispatcher.ClaimPrize(context.Background(), hooks.ClaimRequest{Winner: alice, Tier: 1, PrizeIndex: 2})
	require.NoError(t, err)
	require.Equal(t, alice, res.Recipient)
}

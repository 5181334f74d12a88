package prizepool

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pthooks/core/state"
)

var (
	poolAddr  = [20]byte{0x50}
	vaultAddr = [20]byte{0x51}
	alice     = [20]byte{0xa1}
	bob       = [20]byte{0xb0}
	claimer   = [20]byte{0xc1}
)

func newTestPool(t *testing.T, st *state.Manager) *Pool {
	t.Helper()
	pool, err := NewPool(st, Config{
		Address:    poolAddr,
		PrizeToken: "pool",
		Tiers: []Tier{
			{PrizeSize: big.NewInt(1_000), PrizeCount: 1},
			{PrizeSize: big.NewInt(100), PrizeCount: 4},
			{PrizeSize: big.NewInt(10), PrizeCount: 16},
		},
		FirstDrawOpensAt:  1_000,
		DrawPeriodSeconds: 86_400,
	})
	require.NoError(t, err)
	require.NoError(t, st.Mint("POOL", poolAddr, big.NewInt(10_000)))
	return pool
}

func TestPoolClaimPaysRecipientAndReward(t *testing.T) {
	st := state.NewManager(nil)
	pool := newTestPool(t, st)
	_, err := pool.IsWinner(vaultAddr, alice, 1, 0)
	require.ErrorIs(t, err, ErrNoDrawAwarded)

	drawID, err := pool.AwardDraw(uint256.NewInt(42), []Win{{Vault: vaultAddr, Winner: alice, Tier: 1, PrizeIndex: 2}})
	require.NoError(t, err)
	require.Equal(t, uint32(1), drawID)

	won, err := pool.IsWinner(vaultAddr, alice, 1, 2)
	require.NoError(t, err)
	require.True(t, won)
	won, err = pool.IsWinner(vaultAddr, bob, 1, 2)
	require.NoError(t, err)
	require.False(t, won)

	amount, err := pool.ClaimPrize(vaultAddr, alice, 1, 2, bob, big.NewInt(5), claimer)
	require.NoError(t, err)
	require.Equal(t, int64(95), amount.Int64())

	bal, err := st.Balance("pool", bob)
	require.NoError(t, err)
	require.Equal(t, int64(95), bal.Int64())
	bal, err = st.Balance("pool", claimer)
	require.NoError(t, err)
	require.Equal(t, int64(5), bal.Int64())

	_, err = pool.ClaimPrize(vaultAddr, alice, 1, 2, bob, nil, claimer)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = pool.ClaimPrize(vaultAddr, bob, 1, 2, bob, nil, claimer)
	require.ErrorIs(t, err, ErrNotWinner)
	_, err = pool.IsWinner(vaultAddr, alice, 1, 4)
	require.ErrorIs(t, err, ErrInvalidIndex)
}

func TestPoolClaimRollsBackWithState(t *testing.T) {
	st := state.NewManager(nil)
	pool := newTestPool(t, st)
	_, err := pool.AwardDraw(uint256.NewInt(7), []Win{{Vault: vaultAddr, Winner: alice, Tier: 0, PrizeIndex: 0}})
	require.NoError(t, err)

	snap := st.Snapshot()
	_, err = pool.ClaimPrize(vaultAddr, alice, 0, 0, alice, nil, claimer)
	require.NoError(t, err)
	require.NoError(t, st.RevertToSnapshot(snap))

	claimed, err := pool.WasClaimed(vaultAddr, alice, 0, 0)
	require.NoError(t, err)
	require.False(t, claimed)
	_, err = pool.ClaimPrize(vaultAddr, alice, 0, 0, alice, nil, claimer)
	require.NoError(t, err)
}

func TestPoolTimingAndCanary(t *testing.T) {
	pool := newTestPool(t, state.NewManager(nil))
	require.Equal(t, int64(1_000), pool.DrawOpensAt(1))
	require.Equal(t, int64(1_000+86_400), pool.DrawClosesAt(1))
	require.Equal(t, int64(1_000+86_400), pool.DrawOpensAt(2))
	require.True(t, pool.IsCanaryTier(2))
	require.False(t, pool.IsCanaryTier(1))
	require.False(t, pool.IsCanaryTier(3))
	require.Equal(t, uint8(3), pool.NumberOfTiers())

	got, err := pool.ContributePrizeTokens(vaultAddr, big.NewInt(12))
	require.NoError(t, err)
	require.Equal(t, int64(12), got.Int64())
	total, err := pool.Contributions(vaultAddr)
	require.NoError(t, err)
	require.Equal(t, int64(12), total.Int64())
}

func TestTwabAverages(t *testing.T) {
	st := state.NewManager(nil)
	twab, err := NewTwab(st)
	require.NoError(t, err)
	now := int64(100)
	twab.SetNowFunc(func() int64 { return now })

	require.NoError(t, twab.Mint(vaultAddr, alice, big.NewInt(10)))
	now = 200
	require.NoError(t, twab.Mint(vaultAddr, alice, big.NewInt(30)))
	now = 300
	require.NoError(t, twab.Burn(vaultAddr, alice, big.NewInt(40)))

	avg, err := twab.GetTwabBetween(vaultAddr, alice, 100, 300)
	require.NoError(t, err)
	require.Equal(t, int64(25), avg.Int64())
	avg, err = twab.GetTwabBetween(vaultAddr, alice, 0, 100)
	require.NoError(t, err)
	require.Zero(t, avg.Sign())
	bal, err := twab.BalanceOf(vaultAddr, alice)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.Error(t, twab.Burn(vaultAddr, alice, big.NewInt(1)))
	_, err = twab.GetTwabBetween(vaultAddr, alice, 5, 5)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestShareVaultDepositAndConvert(t *testing.T) {
	st := state.NewManager(nil)
	twab, err := NewTwab(st)
	require.NoError(t, err)
	vault, err := NewShareVault(st, twab, vaultAddr, "pool", "pshare")
	require.NoError(t, err)
	require.NoError(t, st.Mint("pool", alice, big.NewInt(1_000)))

	shares, err := vault.Deposit(alice, bob, big.NewInt(400))
	require.NoError(t, err)
	require.Equal(t, int64(400), shares.Int64())

	converted, err := vault.ConvertToShares(big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, int64(100), converted.Int64())

	require.NoError(t, vault.TransferShares(bob, alice, big.NewInt(150)))
	bal, err := vault.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, int64(150), bal.Int64())
	twabBal, err := twab.BalanceOf(vaultAddr, bob)
	require.NoError(t, err)
	require.Equal(t, int64(250), twabBal.Int64())

	_, err = NewShareVault(st, twab, vaultAddr, "pool", "POOL")
	require.Error(t, err)
}

package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pthooks/core/state"
)

var (
	vault    = [20]byte{0x01}
	stranger = [20]byte{0x02}
	winner   = [20]byte{0x03}
	hookAddr = [20]byte{0x04}
)

type staticTrust map[[20]byte]bool

func (s staticTrust) IsTrusted(addr [20]byte) (bool, error) { return s[addr], nil }

type fakePool struct {
	drawID  uint32
	winners map[[20]byte]bool
}

func (f *fakePool) IsWinner(_, w [20]byte, _ uint8, _ uint32) (bool, error) {
	return f.winners[w], nil
}

func (f *fakePool) GetLastAwardedDrawID() (uint32, error) { return f.drawID, nil }

func newVerifier(t *testing.T, st *state.Manager, pool *fakePool) *Verifier {
	t.Helper()
	v, err := NewVerifier(staticTrust{vault: true}, pool, NewReplayGuard(st, hookAddr))
	require.NoError(t, err)
	return v
}

func TestAuthenticateOrder(t *testing.T) {
	st := state.NewManager(nil)
	pool := &fakePool{drawID: 3, winners: map[[20]byte]bool{winner: true}}
	v := newVerifier(t, st, pool)

	base := Settlement{Caller: vault, Winner: winner, Tier: 1, PrizeIndex: 2, Recipient: hookAddr, ExpectedRecipient: hookAddr}

	untrusted := base
	untrusted.Caller = stranger
	_, err := v.Authenticate(untrusted)
	require.ErrorIs(t, err, ErrCallerNotTrusted)

	// Recipient mismatch is reported before the win check even for a loser.
	misdirected := base
	misdirected.Winner = stranger
	misdirected.Recipient = stranger
	_, err = v.Authenticate(misdirected)
	require.ErrorIs(t, err, ErrDidNotReceivePrize)

	loser := base
	loser.Winner = stranger
	_, err = v.Authenticate(loser)
	require.ErrorIs(t, err, ErrDidNotWin)

	drawID, err := v.Authenticate(base)
	require.NoError(t, err)
	require.Equal(t, uint32(3), drawID)
}

func TestReplayGuardIdempotentRejection(t *testing.T) {
	st := state.NewManager(nil)
	pool := &fakePool{drawID: 1, winners: map[[20]byte]bool{winner: true}}
	v := newVerifier(t, st, pool)
	s := Settlement{Caller: vault, Winner: winner, Tier: 0, PrizeIndex: 0, Recipient: hookAddr, ExpectedRecipient: hookAddr}

	_, err := v.Authenticate(s)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = v.Authenticate(s)
		require.ErrorIs(t, err, ErrRepeatHook)
	}

	// A new draw produces a fresh key.
	pool.drawID = 2
	_, err = v.Authenticate(s)
	require.NoError(t, err)

	guard := NewReplayGuard(st, hookAddr)
	used, err := guard.Consumed(ReplayKey(vault, winner, 1, 0, 0))
	require.NoError(t, err)
	require.True(t, used)
	other := NewReplayGuard(st, [20]byte{0x09})
	used, err = other.Consumed(ReplayKey(vault, winner, 1, 0, 0))
	require.NoError(t, err)
	require.False(t, used)
}

func TestReplayKeyDistinguishesFields(t *testing.T) {
	seen := map[[32]byte]bool{}
	keys := [][32]byte{
		ReplayKey(vault, winner, 1, 0, 0),
		ReplayKey(stranger, winner, 1, 0, 0),
		ReplayKey(vault, stranger, 1, 0, 0),
		ReplayKey(vault, winner, 2, 0, 0),
		ReplayKey(vault, winner, 1, 1, 0),
		ReplayKey(vault, winner, 1, 0, 1),
	}
	for _, k := range keys {
		require.False(t, seen[k])
		seen[k] = true
	}
}

func TestVerifierConfiguration(t *testing.T) {
	_, err := NewVerifier(nil, &fakePool{}, nil, WithoutReplayGuard())
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewVerifier(staticTrust{}, nil, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewVerifier(staticTrust{}, &fakePool{}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)

	v, err := NewVerifier(nil, nil, nil, WithSingletonCaller(vault), WithoutWinCheck(), WithoutReplayGuard())
	require.NoError(t, err)
	require.NoError(t, v.AuthenticateCaller(vault))
	require.ErrorIs(t, v.AuthenticateCaller(stranger), ErrCallerNotTrusted)
	drawID, err := v.Authenticate(Settlement{Caller: vault, Recipient: hookAddr, ExpectedRecipient: hookAddr})
	require.NoError(t, err)
	require.Zero(t, drawID)
}

package verify

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pthooks/core/types"
)

type guardState interface {
	Flag(scope string, key []byte) (bool, error)
	SetFlag(scope string, key []byte)
}

// ReplayGuard is an append-only set of consumed prize keys owned by one hook.
type ReplayGuard struct {
	scope string
	state guardState
}

// NewReplayGuard binds a guard to the hook at owner.
func NewReplayGuard(state guardState, owner [20]byte) *ReplayGuard {
	return &ReplayGuard{scope: "replay/" + types.HexAddress(owner), state: state}
}

// ReplayKey derives the guard key of a prize.
func ReplayKey(vault, winner [20]byte, drawID uint32, tier uint8, prizeIndex uint32) [32]byte {
	buf := make([]byte, 0, 20+20+4+1+4)
	buf = append(buf, vault[:]...)
	buf = append(buf, winner[:]...)
	buf = binary.BigEndian.AppendUint32(buf, drawID)
	buf = append(buf, tier)
	buf = binary.BigEndian.AppendUint32(buf, prizeIndex)
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256(buf))
	return key
}

// Consumed reports whether key has been consumed.
func (g *ReplayGuard) Consumed(key [32]byte) (bool, error) {
	return g.state.Flag(g.scope, key[:])
}

// Consume marks key as consumed. A second call for the same key fails with
// ErrRepeatHook and leaves the guard unchanged.
func (g *ReplayGuard) Consume(key [32]byte) error {
	used, err := g.state.Flag(g.scope, key[:])
	if err != nil {
		return err
	}
	if used {
		return ErrRepeatHook
	}
	g.state.SetFlag(g.scope, key[:])
	return nil
}

package state

import "math/big"

var votePrefix = []byte("vote")

// Vote returns the minimum desired prize value recorded for account. Zero
// means the account expressed no preference.
func (m *Manager) Vote(scope [20]byte, account [20]byte) (*big.Int, error) {
	return m.loadAmount(hashKey(votePrefix, scope[:], account[:]))
}

// SetVote records the account's minimum desired prize value. A zero value
// clears the preference.
func (m *Manager) SetVote(scope [20]byte, account [20]byte, value *big.Int) error {
	key := hashKey(votePrefix, scope[:], account[:])
	if value == nil || value.Sign() == 0 {
		m.delete(key)
		return nil
	}
	if value.Sign() < 0 {
		return ErrNegativeAmount
	}
	return m.putRLP(key, value)
}

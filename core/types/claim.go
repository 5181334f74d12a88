package types

import "math/big"

// Claim is the transient record of a single prize claim. It is assembled by
// the dispatcher for one before/after callback pair and never persisted.
type Claim struct {
	Vault        [20]byte
	Winner       [20]byte
	DrawID       uint32
	Tier         uint8
	PrizeIndex   uint32
	RewardAmount *big.Int
	PrizeAmount  *big.Int
	Recipient    [20]byte
	AuxData      []byte
}

package hooks

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeAuxData serialises value into the opaque payload threaded from
// BeforeClaimPrize to AfterClaimPrize.
func EncodeAuxData(value interface{}) ([]byte, error) {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return nil, fmt.Errorf("hooks: encode aux data: %w", err)
	}
	return data, nil
}

// DecodeAuxData decodes a payload produced by EncodeAuxData.
func DecodeAuxData(data []byte, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("hooks: empty aux data")
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("hooks: decode aux data: %w", err)
	}
	return nil
}

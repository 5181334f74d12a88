package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// BurnAddress is the conventional sink for value that must leave circulation.
var BurnAddress = [20]byte{18: 0xde, 19: 0xad}

// IsZeroAddress reports whether addr is the zero sentinel.
func IsZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// HexAddress renders the address in checksummed hex form.
func HexAddress(addr [20]byte) string {
	return common.Address(addr).Hex()
}

// ParseAddress decodes a 0x-prefixed hex address.
func ParseAddress(raw string) ([20]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, false
	}
	return [20]byte(common.HexToAddress(trimmed)), true
}

package events

import (
	"math/big"
	"strconv"
	"strings"

	"pthooks/core/types"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func hexAddr(addr [20]byte) string {
	return types.HexAddress(addr)
}

func boolToString(v bool) string {
	return strconv.FormatBool(v)
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

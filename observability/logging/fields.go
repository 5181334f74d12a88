package logging

import (
	"log/slog"
	"math/big"

	"pthooks/core/types"
)

// Canonical keys attached to per-claim log lines.
const (
	KeyVault      = "vault"
	KeyWinner     = "winner"
	KeyTier       = "tier"
	KeyPrizeIndex = "prizeIndex"
	KeyError      = "error"
)

// Address renders addr as checksummed hex.
func Address(key string, addr [20]byte) slog.Attr {
	return slog.String(key, types.HexAddress(addr))
}

// Amount renders a token amount in base 10. Nil is logged as "0".
func Amount(key string, amount *big.Int) slog.Attr {
	if amount == nil {
		return slog.String(key, "0")
	}
	return slog.String(key, amount.String())
}

// Err renders err under the "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Prize returns the attributes that identify one prize.
func Prize(vault, winner [20]byte, tier uint8, prizeIndex uint32) []any {
	return []any{
		Address(KeyVault, vault),
		Address(KeyWinner, winner),
		slog.Int(KeyTier, int(tier)),
		slog.Int64(KeyPrizeIndex, int64(prizeIndex)),
	}
}

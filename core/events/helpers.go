package events

import (
	"math/big"
	"strings"

	"creditbridge/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return big.NewInt(v).String()
}

func uintToString(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.CBRPrefix, addr[:]).String()
}

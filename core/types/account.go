package types

import "math/big"

// Account captures the balances tracked for a single address on the local
// network: the synthetic debt asset (DSC) and the freely transferable bridge
// token (CBT). Relay custody balances for arbitrary deposit assets live in a
// separate per-asset table keyed by asset identifier.
type Account struct {
	Nonce      uint64   `json:"nonce"`
	BalanceDSC *big.Int `json:"balanceDSC"`
	BalanceCBT *big.Int `json:"balanceCBT"`
}

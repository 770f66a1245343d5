package events

import (
	"math/big"

	"creditbridge/core/types"
)

const (
	TypeTokenDeposited      = "relay.tokenDeposited"
	TypeTokenWithdrawn      = "relay.tokenWithdrawn"
	TypeEmergencyWithdrawal = "relay.emergencyWithdrawal"
)

// TokenDeposited is emitted when the relay takes custody of a deposit and
// forwards the notice toward the ledger network.
type TokenDeposited struct {
	User          [20]byte
	Asset         string
	Amount        *big.Int
	DestNetwork   string
	CorrelationID string
}

func (TokenDeposited) EventType() string { return TypeTokenDeposited }

func (e TokenDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenDeposited,
		Attributes: map[string]string{
			"user":          formatAddress(e.User),
			"asset":         normalizeAsset(e.Asset),
			"amount":        formatAmount(e.Amount),
			"destNetwork":   e.DestNetwork,
			"correlationId": e.CorrelationID,
		},
	}
}

// TokenWithdrawn is emitted when custody is released back to the depositor.
type TokenWithdrawn struct {
	User   [20]byte
	Asset  string
	Amount *big.Int
}

func (TokenWithdrawn) EventType() string { return TypeTokenWithdrawn }

func (e TokenWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenWithdrawn,
		Attributes: map[string]string{
			"user":   formatAddress(e.User),
			"asset":  normalizeAsset(e.Asset),
			"amount": formatAmount(e.Amount),
		},
	}
}

// EmergencyWithdrawal is emitted when the relay owner sweeps stray balances.
type EmergencyWithdrawal struct {
	Owner  [20]byte
	Asset  string
	Amount *big.Int
}

func (EmergencyWithdrawal) EventType() string { return TypeEmergencyWithdrawal }

func (e EmergencyWithdrawal) Event() *types.Event {
	return &types.Event{
		Type: TypeEmergencyWithdrawal,
		Attributes: map[string]string{
			"owner":  formatAddress(e.Owner),
			"asset":  normalizeAsset(e.Asset),
			"amount": formatAmount(e.Amount),
		},
	}
}

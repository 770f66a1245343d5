package events

import (
	"math/big"

	"creditbridge/core/types"
)

const (
	TypeDSCMinted               = "debt.minted"
	TypeDSCBurned               = "debt.burned"
	TypeCrossChainSwapInitiated = "debt.crossChainSwapInitiated"
	TypeCrossChainSwapCompleted = "debt.crossChainSwapCompleted"
)

// DSCMinted is emitted when the swap engine issues debt asset to a user. The
// message id is empty when the mint was triggered locally by the ledger rather
// than by a relayed instruction.
type DSCMinted struct {
	User      [20]byte
	Amount    *big.Int
	MessageID string
}

func (DSCMinted) EventType() string { return TypeDSCMinted }

func (e DSCMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeDSCMinted,
		Attributes: map[string]string{
			"user":      formatAddress(e.User),
			"amount":    formatAmount(e.Amount),
			"messageId": e.MessageID,
		},
	}
}

// DSCBurned is emitted when a user retires debt asset.
type DSCBurned struct {
	User   [20]byte
	Amount *big.Int
}

func (DSCBurned) EventType() string { return TypeDSCBurned }

func (e DSCBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeDSCBurned,
		Attributes: map[string]string{
			"user":   formatAddress(e.User),
			"amount": formatAmount(e.Amount),
		},
	}
}

// CrossChainSwapInitiated is emitted on the source network once the local burn
// has committed and the mint instruction is in flight.
type CrossChainSwapInitiated struct {
	User        [20]byte
	Amount      *big.Int
	DestNetwork string
	MessageID   string
	Fee         *big.Int
}

func (CrossChainSwapInitiated) EventType() string { return TypeCrossChainSwapInitiated }

func (e CrossChainSwapInitiated) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainSwapInitiated,
		Attributes: map[string]string{
			"user":        formatAddress(e.User),
			"amount":      formatAmount(e.Amount),
			"destNetwork": e.DestNetwork,
			"messageId":   e.MessageID,
			"fee":         formatAmount(e.Fee),
		},
	}
}

// CrossChainSwapCompleted is emitted on the destination network when the
// counterpart mint instruction is applied.
type CrossChainSwapCompleted struct {
	User          [20]byte
	Amount        *big.Int
	SourceNetwork string
	MessageID     string
}

func (CrossChainSwapCompleted) EventType() string { return TypeCrossChainSwapCompleted }

func (e CrossChainSwapCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainSwapCompleted,
		Attributes: map[string]string{
			"user":          formatAddress(e.User),
			"amount":        formatAmount(e.Amount),
			"sourceNetwork": e.SourceNetwork,
			"messageId":     e.MessageID,
		},
	}
}

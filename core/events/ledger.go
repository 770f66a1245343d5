package events

import (
	"math/big"

	"creditbridge/core/types"
)

const (
	TypeDepositReceived    = "ledger.depositReceived"
	TypeCreditScoreUpdated = "ledger.creditScoreUpdated"
	TypeBorrowApproved     = "ledger.borrowApproved"
	TypeAssetRegistered    = "ledger.assetRegistered"
	TypeAssetDisabled      = "ledger.assetDisabled"
)

// DepositReceived is emitted when a relayed deposit notice is credited to a
// user's collateral position.
type DepositReceived struct {
	User          [20]byte
	Asset         string
	Amount        *big.Int
	ValueUSD      *big.Int
	SourceNetwork string
	Timestamp     int64
}

func (DepositReceived) EventType() string { return TypeDepositReceived }

func (e DepositReceived) Event() *types.Event {
	return &types.Event{
		Type: TypeDepositReceived,
		Attributes: map[string]string{
			"user":          formatAddress(e.User),
			"asset":         normalizeAsset(e.Asset),
			"amount":        formatAmount(e.Amount),
			"valueUSD":      formatAmount(e.ValueUSD),
			"sourceNetwork": e.SourceNetwork,
			"timestamp":     intToString(e.Timestamp),
		},
	}
}

// CreditScoreUpdated is emitted whenever an administrator assigns a new credit
// score to a user.
type CreditScoreUpdated struct {
	User     [20]byte
	OldScore uint64
	NewScore uint64
}

func (CreditScoreUpdated) EventType() string { return TypeCreditScoreUpdated }

func (e CreditScoreUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditScoreUpdated,
		Attributes: map[string]string{
			"user":     formatAddress(e.User),
			"oldScore": uintToString(e.OldScore),
			"newScore": uintToString(e.NewScore),
		},
	}
}

// BorrowApproved is emitted when the ledger authorizes a borrow against the
// user's collateral. The credit score used for the decision is carried for
// auditability.
type BorrowApproved struct {
	User        [20]byte
	Amount      *big.Int
	DestNetwork string
	CreditScore uint64
}

func (BorrowApproved) EventType() string { return TypeBorrowApproved }

func (e BorrowApproved) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowApproved,
		Attributes: map[string]string{
			"user":        formatAddress(e.User),
			"amount":      formatAmount(e.Amount),
			"destNetwork": e.DestNetwork,
			"creditScore": uintToString(e.CreditScore),
		},
	}
}

// AssetRegistered is emitted when an asset becomes eligible for deposits.
type AssetRegistered struct {
	Asset       string
	PriceSource string
}

func (AssetRegistered) EventType() string { return TypeAssetRegistered }

func (e AssetRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetRegistered,
		Attributes: map[string]string{
			"asset":       normalizeAsset(e.Asset),
			"priceSource": e.PriceSource,
		},
	}
}

// AssetDisabled is emitted when deposits for an asset are switched off.
type AssetDisabled struct {
	Asset string
}

func (AssetDisabled) EventType() string { return TypeAssetDisabled }

func (e AssetDisabled) Event() *types.Event {
	return &types.Event{
		Type:       TypeAssetDisabled,
		Attributes: map[string]string{"asset": normalizeAsset(e.Asset)},
	}
}

package events

import (
	"encoding/hex"
	"math/big"

	"creditbridge/core/types"
)

const (
	TypePassportMinted        = "passport.minted"
	TypePassportUpdated       = "passport.updated"
	TypePassportScoreUpdated  = "passport.creditScoreUpdated"
	TypePassportStatusChanged = "passport.statusChanged"
)

// PassportMinted is emitted when a user's non-transferable attestation is
// created.
type PassportMinted struct {
	ID          [32]byte
	Owner       [20]byte
	CreditScore uint64
	Tier        string
}

func (PassportMinted) EventType() string { return TypePassportMinted }

func (e PassportMinted) Event() *types.Event {
	return &types.Event{
		Type: TypePassportMinted,
		Attributes: map[string]string{
			"id":          hex.EncodeToString(e.ID[:]),
			"owner":       formatAddress(e.Owner),
			"creditScore": uintToString(e.CreditScore),
			"tier":        e.Tier,
		},
	}
}

// PassportUpdated is emitted when an authorized updater refreshes attestation
// metrics.
type PassportUpdated struct {
	ID             [32]byte
	Owner          [20]byte
	CreditScore    uint64
	TotalVolumeUSD *big.Int
	Tier           string
}

func (PassportUpdated) EventType() string { return TypePassportUpdated }

func (e PassportUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePassportUpdated,
		Attributes: map[string]string{
			"id":             hex.EncodeToString(e.ID[:]),
			"owner":          formatAddress(e.Owner),
			"creditScore":    uintToString(e.CreditScore),
			"totalVolumeUSD": formatAmount(e.TotalVolumeUSD),
			"tier":           e.Tier,
		},
	}
}

// PassportScoreUpdated is emitted when only the credit score changes.
type PassportScoreUpdated struct {
	Owner    [20]byte
	OldScore uint64
	NewScore uint64
}

func (PassportScoreUpdated) EventType() string { return TypePassportScoreUpdated }

func (e PassportScoreUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePassportScoreUpdated,
		Attributes: map[string]string{
			"owner":    formatAddress(e.Owner),
			"oldScore": uintToString(e.OldScore),
			"newScore": uintToString(e.NewScore),
		},
	}
}

// PassportStatusChanged is emitted when an attestation is deactivated or
// reactivated by the registry owner.
type PassportStatusChanged struct {
	Owner  [20]byte
	Active bool
}

func (PassportStatusChanged) EventType() string { return TypePassportStatusChanged }

func (e PassportStatusChanged) Event() *types.Event {
	status := "inactive"
	if e.Active {
		status = "active"
	}
	return &types.Event{
		Type: TypePassportStatusChanged,
		Attributes: map[string]string{
			"owner":  formatAddress(e.Owner),
			"status": status,
		},
	}
}

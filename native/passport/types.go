package passport

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Tier labels assigned from fixed credit score thresholds.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// MaxCreditScore bounds the score carried by an attestation.
const MaxCreditScore uint64 = 1_000

// TierForScore maps a credit score to its tier label.
func TierForScore(score uint64) string {
	switch {
	case score >= 850:
		return TierPlatinum
	case score >= 700:
		return TierGold
	case score >= 500:
		return TierSilver
	default:
		return TierBronze
	}
}

// Attestation is a user's non-transferable reputation record. At most one
// exists per owner.
type Attestation struct {
	ID                      [32]byte
	Owner                   [20]byte
	CreditScore             uint64
	TotalTransactions       uint64
	TotalVolumeUSD          *big.Int
	ProtocolsUsed           []string
	LiquidationCount        uint64
	GovernanceParticipation uint64
	Tier                    string
	Active                  bool
	CreatedAt               uint64
	UpdatedAt               uint64
}

// Clone returns a deep copy so callers can mutate freely.
func (a *Attestation) Clone() *Attestation {
	if a == nil {
		return nil
	}
	clone := *a
	if a.TotalVolumeUSD != nil {
		clone.TotalVolumeUSD = new(big.Int).Set(a.TotalVolumeUSD)
	}
	clone.ProtocolsUsed = append([]string(nil), a.ProtocolsUsed...)
	return &clone
}

// AttestationID derives the deterministic token id for an owner.
func AttestationID(owner [20]byte) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(owner[:]))
	return id
}

var (
	attestationPrefix = []byte("passport/attestation/")
	updaterPrefix     = []byte("passport/updater/")
)

func attestationKey(owner [20]byte) []byte {
	return append(append([]byte(nil), attestationPrefix...), owner[:]...)
}

func updaterKey(addr [20]byte) []byte {
	return append(append([]byte(nil), updaterPrefix...), addr[:]...)
}

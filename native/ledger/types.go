package ledger

import "math/big"

// MaxCreditScore is the upper bound of the credit score range. Scores are
// clamped, never rejected, when set administratively.
const MaxCreditScore uint64 = 1000

// UserProfile aggregates a user's cross-network collateral position. Profiles
// are created on first touch and never deleted.
type UserProfile struct {
	TotalDeposited *big.Int
	TotalBorrowed  *big.Int
	CreditScore    uint64
	HealthFactor   *big.Int
	HasAttestation bool
	LastUpdated    uint64
}

// Clone returns a deep copy so callers can mutate freely.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TotalDeposited != nil {
		clone.TotalDeposited = new(big.Int).Set(p.TotalDeposited)
	}
	if p.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(p.TotalBorrowed)
	}
	if p.HealthFactor != nil {
		clone.HealthFactor = new(big.Int).Set(p.HealthFactor)
	}
	return &clone
}

// AssetRegistryEntry describes a depositable asset and the price source used
// to value it. Deposits and valuations require the entry to exist and be
// enabled.
type AssetRegistryEntry struct {
	PriceSource string
	Enabled     bool
}

// ClampScore bounds a raw score to the supported [0, MaxCreditScore] range.
func ClampScore(score uint64) uint64 {
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}

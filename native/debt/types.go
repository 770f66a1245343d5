package debt

import (
	"math/big"
	"strings"
)

// PendingSwap records a cross-network debt move. Created on initiation, the
// completed flag flips on confirmed delivery; records are never removed so the
// table doubles as an audit trail.
type PendingSwap struct {
	MessageID     string
	User          [20]byte
	Amount        *big.Int
	SourceNetwork string
	DestNetwork   string
	CreatedAt     int64
	Completed     bool
}

// Clone returns a deep copy so callers can mutate freely.
func (p *PendingSwap) Clone() *PendingSwap {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return &clone
}

type storedPendingSwap struct {
	MessageID     string
	User          [20]byte
	Amount        *big.Int
	SourceNetwork string
	DestNetwork   string
	CreatedAt     uint64
	Completed     bool
}

func (p *PendingSwap) toStored() *storedPendingSwap {
	amount := p.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return &storedPendingSwap{
		MessageID:     p.MessageID,
		User:          p.User,
		Amount:        amount,
		SourceNetwork: p.SourceNetwork,
		DestNetwork:   p.DestNetwork,
		CreatedAt:     uint64(p.CreatedAt),
		Completed:     p.Completed,
	}
}

func (s *storedPendingSwap) toPendingSwap() *PendingSwap {
	amount := s.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return &PendingSwap{
		MessageID:     s.MessageID,
		User:          s.User,
		Amount:        amount,
		SourceNetwork: s.SourceNetwork,
		DestNetwork:   s.DestNetwork,
		CreatedAt:     int64(s.CreatedAt),
		Completed:     s.Completed,
	}
}

var (
	balancePrefix   = []byte("debt/balance/")
	borrowedPrefix  = []byte("debt/borrowed/")
	allowancePrefix = []byte("debt/allowance/")
	pendingPrefix   = []byte("debt/pending/")
	processedPrefix = []byte("debt/processed/")
	remotePrefix    = []byte("debt/remote/")
	supplyKey       = []byte("debt/supply")
)

func balanceKey(addr [20]byte) []byte {
	return append(append([]byte(nil), balancePrefix...), addr[:]...)
}

func borrowedKey(addr [20]byte) []byte {
	return append(append([]byte(nil), borrowedPrefix...), addr[:]...)
}

func allowanceKey(addr [20]byte) []byte {
	return append(append([]byte(nil), allowancePrefix...), addr[:]...)
}

func pendingKey(msgID string) []byte {
	return append(append([]byte(nil), pendingPrefix...), strings.TrimSpace(msgID)...)
}

func processedKey(msgID string) []byte {
	return append(append([]byte(nil), processedPrefix...), strings.TrimSpace(msgID)...)
}

func remoteKey(network string) []byte {
	return append(append([]byte(nil), remotePrefix...), strings.ToLower(strings.TrimSpace(network))...)
}

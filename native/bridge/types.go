package bridge

import (
	"math/big"
	"strings"
)

// FeeConfig holds the bridge token's send and receive fees in basis points.
// Each side and the combined total are bounded at 10%.
type FeeConfig struct {
	SendFeeBps    uint64
	ReceiveFeeBps uint64
}

// MaxCombinedFeeBps bounds the sum of send and receive fees.
const MaxCombinedFeeBps uint64 = 1_000

// Valid reports whether the configuration respects the fee bounds.
func (f FeeConfig) Valid() bool {
	if f.SendFeeBps > MaxCombinedFeeBps || f.ReceiveFeeBps > MaxCombinedFeeBps {
		return false
	}
	return f.SendFeeBps+f.ReceiveFeeBps <= MaxCombinedFeeBps
}

// PendingSend is the audit record written when tokens are burned for remote
// delivery. Net is the amount after the send fee.
type PendingSend struct {
	From          [20]byte
	To            [20]byte
	Net           *big.Int
	Fee           *big.Int
	TargetNetwork string
	CreatedAt     int64
}

type storedPendingSend struct {
	From          [20]byte
	To            [20]byte
	Net           *big.Int
	Fee           *big.Int
	TargetNetwork string
	CreatedAt     uint64
}

// PendingTransfer records a custodial cross-network transfer awaiting
// operator completion. Records are never removed.
type PendingTransfer struct {
	ID            [32]byte
	Sender        [20]byte
	Recipient     [20]byte
	Amount        *big.Int
	SourceNetwork string
	TargetNetwork string
	CreatedAt     int64
	Completed     bool
}

// Clone returns a deep copy so callers can mutate freely.
func (p *PendingTransfer) Clone() *PendingTransfer {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return &clone
}

type storedPendingTransfer struct {
	ID            [32]byte
	Sender        [20]byte
	Recipient     [20]byte
	Amount        *big.Int
	SourceNetwork string
	TargetNetwork string
	CreatedAt     uint64
	Completed     bool
}

func (p *PendingTransfer) toStored() *storedPendingTransfer {
	amount := p.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return &storedPendingTransfer{
		ID:            p.ID,
		Sender:        p.Sender,
		Recipient:     p.Recipient,
		Amount:        amount,
		SourceNetwork: p.SourceNetwork,
		TargetNetwork: p.TargetNetwork,
		CreatedAt:     uint64(p.CreatedAt),
		Completed:     p.Completed,
	}
}

func (s *storedPendingTransfer) toPendingTransfer() *PendingTransfer {
	amount := s.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return &PendingTransfer{
		ID:            s.ID,
		Sender:        s.Sender,
		Recipient:     s.Recipient,
		Amount:        amount,
		SourceNetwork: s.SourceNetwork,
		TargetNetwork: s.TargetNetwork,
		CreatedAt:     int64(s.CreatedAt),
		Completed:     s.Completed,
	}
}

var (
	allowancePrefix = []byte("bridge/allowance/")
	processedPrefix = []byte("bridge/processed/")
	sendPrefix      = []byte("bridge/send/")
	transferPrefix  = []byte("bridge/transfer/")
	chainPrefix     = []byte("bridge/chain/")
	operatorPrefix  = []byte("bridge/operator/")
	feeConfigKey    = []byte("bridge/fees")
	// Counter keys live outside the record prefixes so no sequence value can
	// render to a record key that shadows them.
	sendSeqKey     = []byte("bridge/sendseq")
	transferSeqKey = []byte("bridge/transferseq")
	supplyKey      = []byte("bridge/supply")
)

func allowanceKey(owner, spender [20]byte) []byte {
	key := append(append([]byte(nil), allowancePrefix...), owner[:]...)
	key = append(key, '/')
	return append(key, spender[:]...)
}

func processedKey(txHash string) []byte {
	return append(append([]byte(nil), processedPrefix...), strings.TrimSpace(txHash)...)
}

func sendKey(seq uint64) []byte {
	return append(append([]byte(nil), sendPrefix...), new(big.Int).SetUint64(seq).Bytes()...)
}

func transferKey(id [32]byte) []byte {
	return append(append([]byte(nil), transferPrefix...), id[:]...)
}

func chainKey(network string) []byte {
	return append(append([]byte(nil), chainPrefix...), strings.ToLower(strings.TrimSpace(network))...)
}

func operatorKey(addr [20]byte) []byte {
	return append(append([]byte(nil), operatorPrefix...), addr[:]...)
}

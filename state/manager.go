package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"creditbridge/core/types"
	"creditbridge/storage"
)

var (
	accountPrefix      = []byte("account/")
	assetBalancePrefix = []byte("assetbalance/")
)

// Manager exposes typed, RLP-encoded access to the underlying key-value store.
// Every native engine declares a narrow interface over the subset of these
// methods it needs; the manager satisfies all of them.
type Manager struct {
	db storage.Database
}

// NewManager constructs a manager bound to the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether the key exists without decoding its value.
func (m *Manager) KVHas(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Has(key)
}

type storedAccount struct {
	Nonce      uint64
	BalanceDSC *big.Int
	BalanceCBT *big.Int
}

func accountKey(addr [20]byte) []byte {
	return append(append([]byte(nil), accountPrefix...), addr[:]...)
}

// GetAccount loads the account for the address, returning a zero-balance
// account when none has been persisted yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceDSC: big.NewInt(0), BalanceCBT: big.NewInt(0)}, nil
	}
	acc := &types.Account{
		Nonce:      stored.Nonce,
		BalanceDSC: stored.BalanceDSC,
		BalanceCBT: stored.BalanceCBT,
	}
	if acc.BalanceDSC == nil {
		acc.BalanceDSC = big.NewInt(0)
	}
	if acc.BalanceCBT == nil {
		acc.BalanceCBT = big.NewInt(0)
	}
	return acc, nil
}

// PutAccount persists the account under the address key.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	stored := storedAccount{
		Nonce:      acc.Nonce,
		BalanceDSC: acc.BalanceDSC,
		BalanceCBT: acc.BalanceCBT,
	}
	if stored.BalanceDSC == nil {
		stored.BalanceDSC = big.NewInt(0)
	}
	if stored.BalanceCBT == nil {
		stored.BalanceCBT = big.NewInt(0)
	}
	return m.KVPut(accountKey(addr), &stored)
}

func assetBalanceKey(asset string, addr [20]byte) []byte {
	key := append(append([]byte(nil), assetBalancePrefix...), asset...)
	key = append(key, '/')
	return append(key, addr[:]...)
}

// AssetBalance returns the custody balance held by addr for the given deposit
// asset. Missing entries read as zero.
func (m *Manager) AssetBalance(asset string, addr [20]byte) (*big.Int, error) {
	var stored big.Int
	ok, err := m.KVGet(assetBalanceKey(asset, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &stored, nil
}

// SetAssetBalance persists the custody balance for (asset, addr).
func (m *Manager) SetAssetBalance(asset string, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: asset balance must be non-negative")
	}
	return m.KVPut(assetBalanceKey(asset, addr), amount)
}

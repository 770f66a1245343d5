package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"creditbridge/core/types"
	"creditbridge/storage"
)

func makeAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func TestKVRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	ok, err := manager.KVGet([]byte("missing"), nil)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.KVPut([]byte("seq"), uint64(42)))
	var seq uint64
	ok, err = manager.KVGet([]byte("seq"), &seq)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), seq)

	has, err := manager.KVHas([]byte("seq"))
	require.NoError(t, err)
	require.True(t, has)

	_, err = manager.KVGet(nil, &seq)
	require.Error(t, err)
}

func TestKVStructRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	type record struct {
		Name   string
		Amount *big.Int
		Flag   bool
	}
	in := record{Name: "swap", Amount: big.NewInt(123), Flag: true}
	require.NoError(t, manager.KVPut([]byte("rec"), &in))

	var out record
	ok, err := manager.KVGet([]byte("rec"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "swap", out.Name)
	require.Zero(t, out.Amount.Cmp(big.NewInt(123)))
	require.True(t, out.Flag)
}

func TestAccountDefaultsToZeroBalances(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := makeAddr(0x10)

	acc, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, acc.BalanceDSC.Sign())
	require.Zero(t, acc.BalanceCBT.Sign())

	acc.Nonce = 7
	acc.BalanceCBT = big.NewInt(500)
	require.NoError(t, manager.PutAccount(addr, acc))

	loaded, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(7), loaded.Nonce)
	require.Zero(t, loaded.BalanceCBT.Cmp(big.NewInt(500)))
}

func TestPutAccountRejectsNil(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	require.Error(t, manager.PutAccount(makeAddr(0x10), nil))

	// nil balances normalize to zero rather than failing.
	require.NoError(t, manager.PutAccount(makeAddr(0x11), &types.Account{}))
	acc, err := manager.GetAccount(makeAddr(0x11))
	require.NoError(t, err)
	require.Zero(t, acc.BalanceDSC.Sign())
}

func TestAssetBalances(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	user := makeAddr(0x10)

	balance, err := manager.AssetBalance("USDC", user)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, manager.SetAssetBalance("USDC", user, big.NewInt(250)))
	balance, err = manager.AssetBalance("USDC", user)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(250)))

	// Same address under a different asset is independent.
	other, err := manager.AssetBalance("WETH", user)
	require.NoError(t, err)
	require.Zero(t, other.Sign())

	require.Error(t, manager.SetAssetBalance("USDC", user, big.NewInt(-1)))
	require.Error(t, manager.SetAssetBalance("USDC", user, nil))
}

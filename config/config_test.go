package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
OwnerKeystorePath = "owner.keystore"
NetworkName = " BaseNet "
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "basenet", cfg.NetworkName)
	require.Equal(t, "basenet", cfg.LedgerNetwork)
	require.Equal(t, "./cbr-data", cfg.DataDir)
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.Equal(t, uint64(300), cfg.Ledger.MaxPriceAgeSeconds)
	require.Equal(t, "1", cfg.Transfer.MinAmount)
	require.NotNil(t, cfg.AllowedNetworks)
}

func TestLoadRejectsExcessiveFees(t *testing.T) {
	path := writeConfig(t, `
OwnerKeystorePath = "owner.keystore"

[Fees]
SendFeeBps = 800
ReceiveFeeBps = 300
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "combined")
}

func TestLoadRejectsInvertedTransferBounds(t *testing.T) {
	path := writeConfig(t, `
OwnerKeystorePath = "owner.keystore"

[Transfer]
MinAmount = "1000"
MaxAmount = "10"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestTransferBoundsParsing(t *testing.T) {
	bounds := Transfer{MinAmount: "10", MaxAmount: "1000"}
	min, max, err := bounds.Bounds()
	require.NoError(t, err)
	require.Zero(t, min.Cmp(big.NewInt(10)))
	require.Zero(t, max.Cmp(big.NewInt(1000)))

	unbounded := Transfer{MinAmount: "10"}
	min, max, err = unbounded.Bounds()
	require.NoError(t, err)
	require.Zero(t, min.Cmp(big.NewInt(10)))
	require.Nil(t, max)

	_, _, err = Transfer{MinAmount: "not-a-number"}.Bounds()
	require.Error(t, err)

	_, _, err = Transfer{MinAmount: "-5"}.Bounds()
	require.Error(t, err)
}

func TestPausesView(t *testing.T) {
	pauses := Pauses{Ledger: true, BridgeRouter: true}
	require.True(t, pauses.IsPaused("ledger"))
	require.True(t, pauses.IsPaused("bridgeRouter"))
	require.False(t, pauses.IsPaused("relay"))
	require.False(t, pauses.IsPaused("unknown"))
}

func TestValidateScoreBound(t *testing.T) {
	cfg := &Config{NetworkName: "alpha", Transfer: Transfer{MinAmount: "1"}}
	cfg.Ledger.MinCreditScore = 1001
	require.Error(t, Validate(cfg))

	cfg.Ledger.MinCreditScore = 500
	require.NoError(t, Validate(cfg))
}

package config

import (
	"os"
	"path/filepath"
	"strings"

	"creditbridge/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the node-level configuration loaded from TOML.
type Config struct {
	DataDir           string   `toml:"DataDir"`
	MetricsAddress    string   `toml:"MetricsAddress"`
	NetworkName       string   `toml:"NetworkName"`
	LedgerNetwork     string   `toml:"LedgerNetwork"`
	OwnerKeystorePath string   `toml:"OwnerKeystorePath"`
	AllowedNetworks   []string `toml:"AllowedNetworks"`

	Ledger   Ledger   `toml:"Ledger"`
	Fees     Fees     `toml:"Fees"`
	Transfer Transfer `toml:"Transfer"`
	Pauses   Pauses   `toml:"Pauses"`
}

// Load reads the configuration at path, creating a default file (and owner
// keystore) when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.OwnerKeystorePath == "" {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "cbr-local"
	}
	cfg.NetworkName = strings.ToLower(strings.TrimSpace(cfg.NetworkName))
	if strings.TrimSpace(cfg.LedgerNetwork) == "" {
		cfg.LedgerNetwork = cfg.NetworkName
	}
	cfg.LedgerNetwork = strings.ToLower(strings.TrimSpace(cfg.LedgerNetwork))
	if cfg.AllowedNetworks == nil {
		cfg.AllowedNetworks = []string{}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./cbr-data"
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9464"
	}
	if cfg.Ledger.MaxPriceAgeSeconds == 0 {
		cfg.Ledger.MaxPriceAgeSeconds = 300
	}
	if cfg.Transfer.MinAmount == "" {
		cfg.Transfer.MinAmount = "1"
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := defaultKeystorePath(configPath)

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	cfg.OwnerKeystorePath = keystorePath
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           "./cbr-data",
		MetricsAddress:    ":9464",
		NetworkName:       "cbr-local",
		LedgerNetwork:     "cbr-local",
		OwnerKeystorePath: keystorePath,
		AllowedNetworks:   []string{},
		Ledger: Ledger{
			MinCreditScore:     500,
			MaxPriceAgeSeconds: 300,
		},
		Fees: Fees{
			SwapFeeBps:    30,
			SendFeeBps:    100,
			ReceiveFeeBps: 50,
		},
		Transfer: Transfer{
			MinAmount: "1",
			MaxAmount: "1000000000000000000000000",
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.keystore")
}

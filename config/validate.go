package config

import (
	"fmt"
	"math/big"
	"strings"
)

const maxFeeBps = uint64(1_000)

// Validate checks the loaded configuration for out-of-range values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		return fmt.Errorf("config: NetworkName is required")
	}
	if cfg.Ledger.MinCreditScore > 1_000 {
		return fmt.Errorf("ledger: MinCreditScore > 1000")
	}
	if cfg.Fees.SwapFeeBps > maxFeeBps {
		return fmt.Errorf("fees: SwapFeeBps > %d", maxFeeBps)
	}
	if cfg.Fees.SendFeeBps > maxFeeBps || cfg.Fees.ReceiveFeeBps > maxFeeBps {
		return fmt.Errorf("fees: send/receive fee > %d bps", maxFeeBps)
	}
	if cfg.Fees.SendFeeBps+cfg.Fees.ReceiveFeeBps > maxFeeBps {
		return fmt.Errorf("fees: combined send+receive fee > %d bps", maxFeeBps)
	}
	min, max, err := cfg.Transfer.Bounds()
	if err != nil {
		return err
	}
	if max != nil && min.Cmp(max) > 0 {
		return fmt.Errorf("transfer: MinAmount > MaxAmount")
	}
	return nil
}

// Bounds parses the configured transfer bounds into runtime values. A nil max
// means unbounded.
func (t Transfer) Bounds() (*big.Int, *big.Int, error) {
	min, err := parseAmount(t.MinAmount, "transfer.MinAmount")
	if err != nil {
		return nil, nil, err
	}
	if min == nil {
		min = big.NewInt(1)
	}
	max, err := parseAmount(t.MaxAmount, "transfer.MaxAmount")
	if err != nil {
		return nil, nil, err
	}
	return min, max, nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid %s %q", field, raw)
	}
	return value, nil
}

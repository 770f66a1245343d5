package config

// Ledger holds the collateral ledger's policy knobs.
type Ledger struct {
	MinCreditScore     uint64 `toml:"MinCreditScore"`
	MaxPriceAgeSeconds uint64 `toml:"MaxPriceAgeSeconds"`
}

// Fees holds the basis-point fees for the swap engine and the bridge token.
type Fees struct {
	SwapFeeBps    uint64 `toml:"SwapFeeBps"`
	SendFeeBps    uint64 `toml:"SendFeeBps"`
	ReceiveFeeBps uint64 `toml:"ReceiveFeeBps"`
}

// Transfer bounds the amounts accepted by the bridge router. Amounts are
// decimal strings in base units; an empty MaxAmount disables the upper bound.
type Transfer struct {
	MinAmount string `toml:"MinAmount"`
	MaxAmount string `toml:"MaxAmount"`
}

// Pauses disables mutating entry points per component.
type Pauses struct {
	Ledger       bool `toml:"Ledger"`
	Relay        bool `toml:"Relay"`
	Debt         bool `toml:"Debt"`
	Bridge       bool `toml:"Bridge"`
	BridgeRouter bool `toml:"BridgeRouter"`
	Passport     bool `toml:"Passport"`
}

// IsPaused reports whether the named module is paused. Satisfies the pause
// view consumed by the native engines.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "ledger":
		return p.Ledger
	case "relay":
		return p.Relay
	case "debt":
		return p.Debt
	case "bridge":
		return p.Bridge
	case "bridgeRouter":
		return p.BridgeRouter
	case "passport":
		return p.Passport
	default:
		return false
	}
}

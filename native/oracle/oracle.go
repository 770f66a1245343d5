package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

var (
	// ErrPriceUnavailable marks assets with no recorded quote.
	ErrPriceUnavailable = errors.New("oracle: price unavailable")
	// ErrStalePrice marks quotes older than the configured freshness window.
	ErrStalePrice = errors.New("oracle: price stale")
)

// Quote captures a USD rate for an asset along with the timestamp reported by
// the upstream feed and the feed identifier.
type Quote struct {
	Rate      *big.Rat
	Decimals  uint8
	Timestamp time.Time
	Source    string
}

// Source resolves an asset identifier to its latest USD quote. Implementations
// must return ErrPriceUnavailable or ErrStalePrice rather than a default rate;
// valuation callers abort on either.
type Source interface {
	Quote(assetID string) (Quote, error)
}

func normaliseAsset(assetID string) string {
	return strings.ToUpper(strings.TrimSpace(assetID))
}

// Manual provides an in-memory oracle implementation used for tests and
// operator-fed deployments.
type Manual struct {
	mu     sync.RWMutex
	quotes map[string]Quote
	maxAge time.Duration
	now    func() time.Time
}

// NewManual constructs an empty manual oracle. Quotes older than maxAge are
// reported stale; a zero maxAge disables the freshness check.
func NewManual(maxAge time.Duration) *Manual {
	return &Manual{
		quotes: make(map[string]Quote),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetClock overrides the oracle clock, primarily for deterministic testing.
func (m *Manual) SetClock(now func() time.Time) {
	if m == nil || now == nil {
		return
	}
	m.now = now
}

// SetDecimal records the supplied decimal rate for the asset using the provided
// timestamp.
func (m *Manual) SetDecimal(assetID, rate string, decimals uint8, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("oracle: manual oracle not configured")
	}
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return fmt.Errorf("oracle: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("oracle: invalid rate %q", rate)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("oracle: rate must be positive")
	}
	m.Set(assetID, rat, decimals, ts)
	return nil
}

// Set stores the provided rational rate for the asset.
func (m *Manual) Set(assetID string, rate *big.Rat, decimals uint8, ts time.Time) {
	if m == nil || rate == nil {
		return
	}
	key := normaliseAsset(assetID)
	if key == "" {
		return
	}
	m.mu.Lock()
	m.quotes[key] = Quote{
		Rate:      new(big.Rat).Set(rate),
		Decimals:  decimals,
		Timestamp: ts,
		Source:    "manual",
	}
	m.mu.Unlock()
}

// Quote retrieves the stored quote for the asset, enforcing the freshness
// window.
func (m *Manual) Quote(assetID string) (Quote, error) {
	if m == nil {
		return Quote{}, ErrPriceUnavailable
	}
	key := normaliseAsset(assetID)
	m.mu.RLock()
	stored, ok := m.quotes[key]
	m.mu.RUnlock()
	if !ok || stored.Rate == nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, assetID)
	}
	if m.maxAge > 0 {
		age := m.now().Sub(stored.Timestamp)
		if age > m.maxAge {
			return Quote{}, fmt.Errorf("%w: %s quoted %s ago", ErrStalePrice, assetID, age)
		}
	}
	clone := stored
	clone.Rate = new(big.Rat).Set(stored.Rate)
	return clone, nil
}

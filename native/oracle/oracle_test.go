package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestManualQuoteRoundTrip(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	oracle := NewManual(time.Minute)
	oracle.SetClock(func() time.Time { return clock })

	oracle.Set("usdc", big.NewRat(1, 1), 6, clock)
	quote, err := oracle.Quote("USDC")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Rate.Cmp(big.NewRat(1, 1)) != 0 || quote.Decimals != 6 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if quote.Source != "manual" {
		t.Fatalf("expected manual source, got %q", quote.Source)
	}
}

func TestManualQuoteUnavailable(t *testing.T) {
	oracle := NewManual(time.Minute)
	if _, err := oracle.Quote("WETH"); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestManualQuoteStaleness(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	oracle := NewManual(time.Minute)
	oracle.SetClock(func() time.Time { return clock })

	oracle.Set("USDC", big.NewRat(1, 1), 6, clock.Add(-2*time.Minute))
	if _, err := oracle.Quote("USDC"); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}

	// Zero maxAge disables the freshness window.
	unbounded := NewManual(0)
	unbounded.SetClock(func() time.Time { return clock })
	unbounded.Set("USDC", big.NewRat(1, 1), 6, clock.Add(-24*time.Hour))
	if _, err := unbounded.Quote("USDC"); err != nil {
		t.Fatalf("expected unbounded oracle to serve old quote, got %v", err)
	}
}

func TestSetDecimalParsesRates(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	oracle := NewManual(time.Minute)
	oracle.SetClock(func() time.Time { return clock })

	if err := oracle.SetDecimal("WETH", "1825.50", 18, clock); err != nil {
		t.Fatalf("set decimal: %v", err)
	}
	quote, err := oracle.Quote("WETH")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	want := new(big.Rat).SetFrac(big.NewInt(182550), big.NewInt(100))
	if quote.Rate.Cmp(want) != 0 {
		t.Fatalf("expected rate %s, got %s", want, quote.Rate)
	}

	if err := oracle.SetDecimal("WETH", "abc", 18, clock); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := oracle.SetDecimal("WETH", "-1", 18, clock); err == nil {
		t.Fatalf("expected rejection of negative rate")
	}
}

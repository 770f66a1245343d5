package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	nativecommon "creditbridge/native/common"
	"creditbridge/native/oracle"
	"creditbridge/state"
	"creditbridge/storage"
)

func makeAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

type stubPauseView struct {
	modules map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool {
	if s.modules == nil {
		return false
	}
	return s.modules[module]
}

func newTestEngine(t *testing.T, minScore uint64) (*Engine, [20]byte) {
	t.Helper()
	owner := makeAddr(0x01)
	engine := NewEngine(owner, minScore)
	engine.SetState(state.NewManager(storage.NewMemDB()))
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	clock := time.Unix(1_700_000_000, 0)
	prices := oracle.NewManual(time.Hour)
	prices.SetClock(func() time.Time { return clock })
	prices.Set("USDC", big.NewRat(1, 1), 6, clock)
	engine.SetPriceSource(prices)
	return engine, owner
}

func TestProcessDepositValuesCollateral(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	user := makeAddr(0x10)
	if err := engine.RegisterAsset(owner, "usdc", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}

	value, err := engine.ProcessDeposit(user, "USDC", big.NewInt(100), "basenet")
	if err != nil {
		t.Fatalf("process deposit: %v", err)
	}
	if value.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected USD value 100, got %s", value)
	}

	profile, err := engine.Profile(user)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalDeposited.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected totalDeposited 100, got %s", profile.TotalDeposited)
	}
	record, err := engine.DepositRecord(user, "USDC")
	if err != nil {
		t.Fatalf("deposit record: %v", err)
	}
	if record.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected deposit record 100, got %s", record)
	}

	hf, err := engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	if hf.Cmp(maxHealthFactor) != 0 {
		t.Fatalf("expected sentinel health factor for zero debt, got %s", hf)
	}
}

func TestProcessDepositRequiresUsableAsset(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	user := makeAddr(0x10)

	if _, err := engine.ProcessDeposit(user, "WETH", big.NewInt(10), "basenet"); !errors.Is(err, ErrAssetNotRegistered) {
		t.Fatalf("expected ErrAssetNotRegistered, got %v", err)
	}

	if err := engine.RegisterAsset(owner, "WETH", "manual:WETH"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if err := engine.SetAssetEnabled(owner, "WETH", false); err != nil {
		t.Fatalf("disable asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(user, "WETH", big.NewInt(10), "basenet"); !errors.Is(err, ErrAssetDisabled) {
		t.Fatalf("expected ErrAssetDisabled, got %v", err)
	}
}

func TestProcessDepositRejectsStalePrice(t *testing.T) {
	owner := makeAddr(0x01)
	engine := NewEngine(owner, 500)
	engine.SetState(state.NewManager(storage.NewMemDB()))

	clock := time.Unix(1_700_000_000, 0)
	prices := oracle.NewManual(time.Minute)
	prices.SetClock(func() time.Time { return clock })
	prices.Set("USDC", big.NewRat(1, 1), 6, clock.Add(-time.Hour))
	engine.SetPriceSource(prices)

	if err := engine.RegisterAsset(owner, "USDC", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(makeAddr(0x10), "USDC", big.NewInt(10), "basenet"); !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}
	record, err := engine.DepositRecord(makeAddr(0x10), "USDC")
	if err != nil {
		t.Fatalf("deposit record: %v", err)
	}
	if record.Sign() != 0 {
		t.Fatalf("expected no deposit recorded, got %s", record)
	}
}

func TestSetCreditScoreClampsInput(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	user := makeAddr(0x10)

	if err := engine.SetCreditScore(owner, user, 1500); err != nil {
		t.Fatalf("set credit score: %v", err)
	}
	profile, err := engine.Profile(user)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.CreditScore != 1000 {
		t.Fatalf("expected score clamped to 1000, got %d", profile.CreditScore)
	}

	if err := engine.SetCreditScore(makeAddr(0x99), user, 700); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestApproveBorrowGates(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	engine.Policy().AllowDestination("basenet")
	user := makeAddr(0x10)

	if err := engine.RegisterAsset(owner, "USDC", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(user, "USDC", big.NewInt(100), "basenet"); err != nil {
		t.Fatalf("process deposit: %v", err)
	}

	if err := engine.ApproveBorrow(user, big.NewInt(50), "othernet"); !errors.Is(err, nativecommon.ErrDestinationNotAllowed) {
		t.Fatalf("expected destination rejection, got %v", err)
	}

	if err := engine.SetCreditScore(owner, user, 400); err != nil {
		t.Fatalf("set credit score: %v", err)
	}
	if err := engine.ApproveBorrow(user, big.NewInt(10), "basenet"); !errors.Is(err, ErrInvalidCreditScore) {
		t.Fatalf("expected ErrInvalidCreditScore, got %v", err)
	}

	if err := engine.SetCreditScore(owner, user, 600); err != nil {
		t.Fatalf("set credit score: %v", err)
	}
	if err := engine.ApproveBorrow(user, big.NewInt(80), "basenet"); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
	if err := engine.ApproveBorrow(user, big.NewInt(50), "basenet"); err != nil {
		t.Fatalf("approve borrow: %v", err)
	}

	hf, err := engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	// 100 * 75% / 50 = 1.5 in 1e18 fixed point.
	want := new(big.Int).Mul(big.NewInt(15), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))
	if hf.Cmp(want) != 0 {
		t.Fatalf("expected health factor %s, got %s", want, hf)
	}
}

type stubMinter struct {
	users   [][20]byte
	amounts []*big.Int
}

func (s *stubMinter) Mint(user [20]byte, amount *big.Int) error {
	s.users = append(s.users, user)
	s.amounts = append(s.amounts, new(big.Int).Set(amount))
	return nil
}

func TestApproveBorrowIssuesThroughMinter(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	engine.Policy().AllowDestination("basenet")
	minter := &stubMinter{}
	engine.SetDebtMinter(minter)
	user := makeAddr(0x10)

	if err := engine.RegisterAsset(owner, "USDC", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(user, "USDC", big.NewInt(100), "basenet"); err != nil {
		t.Fatalf("process deposit: %v", err)
	}
	if err := engine.SetCreditScore(owner, user, 600); err != nil {
		t.Fatalf("set credit score: %v", err)
	}

	if err := engine.ApproveBorrow(user, big.NewInt(80), "basenet"); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
	if len(minter.users) != 0 {
		t.Fatalf("expected no mint on rejected borrow, got %d", len(minter.users))
	}

	if err := engine.ApproveBorrow(user, big.NewInt(50), "basenet"); err != nil {
		t.Fatalf("approve borrow: %v", err)
	}
	if len(minter.users) != 1 || minter.users[0] != user {
		t.Fatalf("expected one mint for user, got %v", minter.users)
	}
	if minter.amounts[0].Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected mint of 50, got %s", minter.amounts[0])
	}
}

func TestBorrowCapacityTierBonus(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	engine.Policy().AllowDestination("basenet")
	user := makeAddr(0x10)

	if err := engine.RegisterAsset(owner, "USDC", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(user, "USDC", big.NewInt(100), "basenet"); err != nil {
		t.Fatalf("process deposit: %v", err)
	}
	if err := engine.SetCreditScore(owner, user, 900); err != nil {
		t.Fatalf("set credit score: %v", err)
	}

	// 100 * 75% * 110% = 82 after flooring.
	if err := engine.ApproveBorrow(user, big.NewInt(83), "basenet"); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral above tier capacity, got %v", err)
	}
	if err := engine.ApproveBorrow(user, big.NewInt(82), "basenet"); err != nil {
		t.Fatalf("approve borrow at tier capacity: %v", err)
	}
}

func TestLedgerGuardBlocksMutation(t *testing.T) {
	engine, owner := newTestEngine(t, 500)
	engine.SetPauses(stubPauseView{modules: map[string]bool{"ledger": true}})
	if err := engine.RegisterAsset(owner, "USDC", "manual:USDC"); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if _, err := engine.ProcessDeposit(makeAddr(0x10), "USDC", big.NewInt(10), "basenet"); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

package passport

import (
	"errors"
	"math/big"
	"testing"

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

type stubNotifier struct {
	attested [][20]byte
}

func (s *stubNotifier) MarkAttested(user [20]byte) error {
	s.attested = append(s.attested, user)
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, [20]byte) {
	t.Helper()
	owner := makeAddr(0x01)
	registry := NewRegistry(owner)
	registry.SetState(state.NewManager(storage.NewMemDB()))
	registry.SetNowFunc(func() int64 { return 1_700_000_000 })
	return registry, owner
}

func TestMintPassportOnePerUser(t *testing.T) {
	registry, owner := newTestRegistry(t)
	notifier := &stubNotifier{}
	registry.SetAttestedNotifier(notifier)
	user := makeAddr(0x10)

	att, err := registry.MintPassport(owner, user, 720, 15, big.NewInt(5000), []string{"lending", "swap"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if att.Tier != TierGold {
		t.Fatalf("expected gold tier for 720, got %s", att.Tier)
	}
	if !att.Active {
		t.Fatalf("expected new attestation active")
	}
	if len(notifier.attested) != 1 || notifier.attested[0] != user {
		t.Fatalf("expected ledger notified for %x", user)
	}

	if _, err := registry.MintPassport(owner, user, 720, 15, big.NewInt(5000), nil); !errors.Is(err, ErrPassportAlreadyExists) {
		t.Fatalf("expected ErrPassportAlreadyExists, got %v", err)
	}
}

func TestMintPassportValidation(t *testing.T) {
	registry, owner := newTestRegistry(t)

	if _, err := registry.MintPassport(owner, [20]byte{}, 700, 0, nil, nil); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if _, err := registry.MintPassport(owner, makeAddr(0x10), 1001, 0, nil, nil); !errors.Is(err, ErrInvalidCreditScore) {
		t.Fatalf("expected ErrInvalidCreditScore, got %v", err)
	}
	if _, err := registry.MintPassport(makeAddr(0x99), makeAddr(0x10), 700, 0, nil, nil); !errors.Is(err, ErrUnauthorizedUpdater) {
		t.Fatalf("expected ErrUnauthorizedUpdater, got %v", err)
	}
}

func TestAuthorizedUpdaterLifecycle(t *testing.T) {
	registry, owner := newTestRegistry(t)
	updater := makeAddr(0x20)
	user := makeAddr(0x10)

	if err := registry.AuthorizeUpdater(makeAddr(0x99), updater); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.AuthorizeUpdater(owner, updater); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, err := registry.MintPassport(updater, user, 400, 1, nil, nil); err != nil {
		t.Fatalf("updater mint: %v", err)
	}
	if err := registry.RevokeUpdater(owner, updater); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := registry.UpdateCreditScore(updater, user, 500); !errors.Is(err, ErrUnauthorizedUpdater) {
		t.Fatalf("expected ErrUnauthorizedUpdater after revoke, got %v", err)
	}
}

func TestUpdateRecomputesTier(t *testing.T) {
	registry, owner := newTestRegistry(t)
	user := makeAddr(0x10)
	if _, err := registry.MintPassport(owner, user, 450, 1, big.NewInt(100), nil); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := registry.UpdateCreditScore(owner, user, 860); err != nil {
		t.Fatalf("update score: %v", err)
	}
	att, err := registry.AttestationOf(user)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if att.CreditScore != 860 || att.Tier != TierPlatinum {
		t.Fatalf("expected platinum at 860, got score %d tier %s", att.CreditScore, att.Tier)
	}

	if err := registry.UpdatePassport(owner, user, 520, 40, big.NewInt(9000), []string{"bridge"}, 1, 3); err != nil {
		t.Fatalf("update passport: %v", err)
	}
	att, _ = registry.AttestationOf(user)
	if att.Tier != TierSilver || att.LiquidationCount != 1 || att.GovernanceParticipation != 3 {
		t.Fatalf("unexpected attestation after update: %+v", att)
	}

	if err := registry.UpdateCreditScore(owner, makeAddr(0x33), 500); !errors.Is(err, ErrPassportDoesNotExist) {
		t.Fatalf("expected ErrPassportDoesNotExist, got %v", err)
	}
}

func TestTransferAlwaysFails(t *testing.T) {
	registry, owner := newTestRegistry(t)
	user := makeAddr(0x10)
	if _, err := registry.MintPassport(owner, user, 700, 1, nil, nil); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := registry.Transfer(user, user, makeAddr(0x11)); !errors.Is(err, ErrNonTransferable) {
		t.Fatalf("expected ErrNonTransferable for holder, got %v", err)
	}
	if err := registry.Transfer(owner, user, makeAddr(0x11)); !errors.Is(err, ErrNonTransferable) {
		t.Fatalf("expected ErrNonTransferable for registry owner, got %v", err)
	}
}

func TestMirrorCreditScoreSkipsMissingAttestation(t *testing.T) {
	registry, owner := newTestRegistry(t)
	user := makeAddr(0x10)

	if err := registry.MirrorCreditScore(user, 700); err != nil {
		t.Fatalf("mirror without attestation should be a no-op, got %v", err)
	}
	if has, _ := registry.HasPassport(user); has {
		t.Fatalf("mirror must not create attestations")
	}

	if _, err := registry.MintPassport(owner, user, 400, 1, nil, nil); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := registry.MirrorCreditScore(user, 900); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	att, _ := registry.AttestationOf(user)
	if att.CreditScore != 900 || att.Tier != TierPlatinum {
		t.Fatalf("expected mirrored score 900 platinum, got %+v", att)
	}
}

func TestDeactivateReactivate(t *testing.T) {
	registry, owner := newTestRegistry(t)
	user := makeAddr(0x10)
	if _, err := registry.MintPassport(owner, user, 700, 1, nil, nil); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := registry.Deactivate(makeAddr(0x99), user); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.Deactivate(owner, user); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	att, _ := registry.AttestationOf(user)
	if att.Active {
		t.Fatalf("expected inactive attestation")
	}
	if err := registry.Reactivate(owner, user); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	att, _ = registry.AttestationOf(user)
	if !att.Active {
		t.Fatalf("expected reactivated attestation")
	}
}

func TestTierThresholds(t *testing.T) {
	cases := []struct {
		score uint64
		tier  string
	}{
		{0, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{699, TierSilver},
		{700, TierGold},
		{849, TierGold},
		{850, TierPlatinum},
		{1000, TierPlatinum},
	}
	for _, tc := range cases {
		if got := TierForScore(tc.score); got != tc.tier {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.tier, got)
		}
	}
}

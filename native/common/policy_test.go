package common

import (
	"errors"
	"testing"
)

func makeAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func TestNetworkPolicyDestinations(t *testing.T) {
	policy := NewNetworkPolicy()
	if err := policy.CheckDestination("beta"); !errors.Is(err, ErrDestinationNotAllowed) {
		t.Fatalf("expected ErrDestinationNotAllowed, got %v", err)
	}
	policy.AllowDestination(" Beta ")
	if err := policy.CheckDestination("beta"); err != nil {
		t.Fatalf("expected allowlisted destination, got %v", err)
	}
	policy.RemoveDestination("beta")
	if err := policy.CheckDestination("beta"); !errors.Is(err, ErrDestinationNotAllowed) {
		t.Fatalf("expected rejection after removal, got %v", err)
	}
}

func TestNetworkPolicyInbound(t *testing.T) {
	policy := NewNetworkPolicy()
	sender := makeAddr(0x0A)

	if err := policy.CheckInbound("alpha", sender); !errors.Is(err, ErrSourceNotAllowed) {
		t.Fatalf("expected ErrSourceNotAllowed, got %v", err)
	}
	policy.AllowSource("alpha")
	if err := policy.CheckInbound("alpha", sender); !errors.Is(err, ErrSenderNotTrusted) {
		t.Fatalf("expected ErrSenderNotTrusted, got %v", err)
	}
	policy.TrustSender(sender)
	if err := policy.CheckInbound("alpha", sender); err != nil {
		t.Fatalf("expected trusted inbound, got %v", err)
	}
	policy.RevokeSender(sender)
	if err := policy.CheckInbound("alpha", sender); !errors.Is(err, ErrSenderNotTrusted) {
		t.Fatalf("expected rejection after revoke, got %v", err)
	}
}

func TestGuard(t *testing.T) {
	if err := Guard(nil, "ledger"); err != nil {
		t.Fatalf("nil pause view must allow, got %v", err)
	}
	paused := stubPauseView{modules: map[string]bool{"ledger": true}}
	if err := Guard(paused, "ledger"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(paused, "relay"); err != nil {
		t.Fatalf("unpaused module must pass, got %v", err)
	}
}

type stubPauseView struct {
	modules map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool {
	return s.modules[module]
}

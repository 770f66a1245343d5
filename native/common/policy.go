package common

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrDestinationNotAllowed marks sends toward a network the component has
	// not allowlisted.
	ErrDestinationNotAllowed = errors.New("policy: destination network not allowed")
	// ErrSourceNotAllowed marks inbound messages from a network the component
	// has not allowlisted.
	ErrSourceNotAllowed = errors.New("policy: source network not allowed")
	// ErrSenderNotTrusted marks inbound messages from a sender the component
	// does not trust.
	ErrSenderNotTrusted = errors.New("policy: sender not trusted")
)

// NetworkPolicy tracks the allowlisted destination networks, source networks
// and trusted remote senders for a single component. Each component keeps its
// own policy; the trust roles differ per component so nothing is shared.
type NetworkPolicy struct {
	mu           sync.RWMutex
	destinations map[string]bool
	sources      map[string]bool
	senders      map[[20]byte]bool
}

// NewNetworkPolicy returns an empty policy. An empty policy rejects everything
// until entries are added.
func NewNetworkPolicy() *NetworkPolicy {
	return &NetworkPolicy{
		destinations: make(map[string]bool),
		sources:      make(map[string]bool),
		senders:      make(map[[20]byte]bool),
	}
}

func normalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}

// AllowDestination adds a destination network to the allowlist.
func (p *NetworkPolicy) AllowDestination(network string) {
	name := normalizeNetwork(network)
	if name == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destinations[name] = true
}

// RemoveDestination removes a destination network from the allowlist.
func (p *NetworkPolicy) RemoveDestination(network string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.destinations, normalizeNetwork(network))
}

// CheckDestination verifies the destination network is allowlisted.
func (p *NetworkPolicy) CheckDestination(network string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.destinations[normalizeNetwork(network)] {
		return ErrDestinationNotAllowed
	}
	return nil
}

// AllowSource adds a source network to the allowlist.
func (p *NetworkPolicy) AllowSource(network string) {
	name := normalizeNetwork(network)
	if name == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = true
}

// RemoveSource removes a source network from the allowlist.
func (p *NetworkPolicy) RemoveSource(network string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sources, normalizeNetwork(network))
}

// TrustSender marks a remote sender address as trusted for inbound messages.
func (p *NetworkPolicy) TrustSender(sender [20]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.senders[sender] = true
}

// RevokeSender removes a remote sender from the trusted set.
func (p *NetworkPolicy) RevokeSender(sender [20]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.senders, sender)
}

// CheckInbound verifies both the source network and the sender of an inbound
// message before any handler state is touched.
func (p *NetworkPolicy) CheckInbound(sourceNetwork string, sender [20]byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.sources[normalizeNetwork(sourceNetwork)] {
		return ErrSourceNotAllowed
	}
	if !p.senders[sender] {
		return ErrSenderNotTrusted
	}
	return nil
}

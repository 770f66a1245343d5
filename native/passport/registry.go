package passport

import (
	"errors"
	"math/big"
	"sort"
	"time"

	"creditbridge/core/events"
	nativecommon "creditbridge/native/common"
)

var (
	errNilState = errors.New("passport: state not configured")

	// ErrUnauthorized marks owner-only calls from other addresses.
	ErrUnauthorized = errors.New("passport: caller not authorized")
	// ErrUnauthorizedUpdater marks mint/update calls from addresses outside the
	// updater set.
	ErrUnauthorizedUpdater = errors.New("passport: caller is not an authorized updater")
	// ErrZeroAddress marks operations against the zero address.
	ErrZeroAddress = errors.New("passport: zero address")
	// ErrPassportAlreadyExists enforces the one-attestation-per-owner invariant.
	ErrPassportAlreadyExists = errors.New("passport: attestation already exists")
	// ErrPassportDoesNotExist marks updates against an owner with no attestation.
	ErrPassportDoesNotExist = errors.New("passport: attestation does not exist")
	// ErrInvalidCreditScore marks scores above the 1000 bound.
	ErrInvalidCreditScore = errors.New("passport: credit score out of range")
	// ErrNonTransferable is returned by every transfer path, including the
	// owner's.
	ErrNonTransferable = errors.New("passport: attestation is non-transferable")
)

const registryModule = "passport"

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

// AttestedNotifier is told when a user gains their attestation so the
// collateral ledger can flip its hasAttestation flag. Wired at configuration
// time; a nil notifier disables the feedback.
type AttestedNotifier interface {
	MarkAttested(user [20]byte) error
}

// Registry issues and maintains one non-transferable attestation per user. A
// configured set of updaters (normally the collateral ledger) drives mints and
// metric refreshes; the registry owner manages that set and activation status.
type Registry struct {
	state    registryState
	pauses   nativecommon.PauseView
	emitter  events.Emitter
	owner    [20]byte
	notifier AttestedNotifier
	nowFn    func() int64
}

// NewRegistry constructs a registry owned by the given address.
func NewRegistry(owner [20]byte) *Registry {
	return &Registry{
		owner:   owner,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the registry to the external persistence layer.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetPauses wires the pause view guarding mutating entry points.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetAttestedNotifier wires the ledger feedback capability.
func (r *Registry) SetAttestedNotifier(n AttestedNotifier) {
	if r == nil {
		return
	}
	r.notifier = n
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if r == nil || now == nil {
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(event events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

// AuthorizeUpdater grants an address the right to mint and update
// attestations. Owner only.
func (r *Registry) AuthorizeUpdater(caller, updater [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	if updater == ([20]byte{}) {
		return ErrZeroAddress
	}
	return r.state.KVPut(updaterKey(updater), true)
}

// RevokeUpdater removes an address from the updater set. Owner only.
func (r *Registry) RevokeUpdater(caller, updater [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	if updater == ([20]byte{}) {
		return ErrZeroAddress
	}
	return r.state.KVPut(updaterKey(updater), false)
}

func (r *Registry) isUpdater(addr [20]byte) (bool, error) {
	if addr == r.owner {
		return true, nil
	}
	var enabled bool
	ok, err := r.state.KVGet(updaterKey(addr), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}

// MintPassport creates the attestation for a user. Updater only; at most one
// attestation can exist per owner.
func (r *Registry) MintPassport(caller, user [20]byte, creditScore, totalTransactions uint64, totalVolumeUSD *big.Int, protocolsUsed []string) (*Attestation, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(r.pauses, registryModule); err != nil {
		return nil, err
	}
	updater, err := r.isUpdater(caller)
	if err != nil {
		return nil, err
	}
	if !updater {
		return nil, ErrUnauthorizedUpdater
	}
	if user == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if creditScore > MaxCreditScore {
		return nil, ErrInvalidCreditScore
	}
	exists, err := r.state.KVHas(attestationKey(user))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPassportAlreadyExists
	}
	if totalVolumeUSD == nil {
		totalVolumeUSD = big.NewInt(0)
	}
	now := uint64(r.nowFn())
	att := &Attestation{
		ID:                AttestationID(user),
		Owner:             user,
		CreditScore:       creditScore,
		TotalTransactions: totalTransactions,
		TotalVolumeUSD:    new(big.Int).Set(totalVolumeUSD),
		ProtocolsUsed:     normalizeProtocols(protocolsUsed),
		Tier:              TierForScore(creditScore),
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.state.KVPut(attestationKey(user), att); err != nil {
		return nil, err
	}
	r.emit(events.PassportMinted{ID: att.ID, Owner: user, CreditScore: creditScore, Tier: att.Tier})
	if r.notifier != nil {
		if err := r.notifier.MarkAttested(user); err != nil {
			return nil, err
		}
	}
	return att.Clone(), nil
}

// UpdatePassport refreshes the full metric set of an existing attestation.
// Updater only.
func (r *Registry) UpdatePassport(caller, user [20]byte, creditScore, totalTransactions uint64, totalVolumeUSD *big.Int, protocolsUsed []string, liquidationCount, governanceParticipation uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, registryModule); err != nil {
		return err
	}
	updater, err := r.isUpdater(caller)
	if err != nil {
		return err
	}
	if !updater {
		return ErrUnauthorizedUpdater
	}
	if creditScore > MaxCreditScore {
		return ErrInvalidCreditScore
	}
	att, err := r.attestation(user)
	if err != nil {
		return err
	}
	if att == nil {
		return ErrPassportDoesNotExist
	}
	oldScore := att.CreditScore
	att.CreditScore = creditScore
	att.TotalTransactions = totalTransactions
	if totalVolumeUSD != nil {
		att.TotalVolumeUSD = new(big.Int).Set(totalVolumeUSD)
	}
	att.ProtocolsUsed = normalizeProtocols(protocolsUsed)
	att.LiquidationCount = liquidationCount
	att.GovernanceParticipation = governanceParticipation
	att.Tier = TierForScore(creditScore)
	att.UpdatedAt = uint64(r.nowFn())
	if err := r.state.KVPut(attestationKey(user), att); err != nil {
		return err
	}
	r.emit(events.PassportUpdated{
		ID:             att.ID,
		Owner:          user,
		CreditScore:    creditScore,
		TotalVolumeUSD: att.TotalVolumeUSD,
		Tier:           att.Tier,
	})
	if oldScore != creditScore {
		r.emit(events.PassportScoreUpdated{Owner: user, OldScore: oldScore, NewScore: creditScore})
	}
	return nil
}

// UpdateCreditScore rewrites only the credit score and the derived tier.
// Updater only.
func (r *Registry) UpdateCreditScore(caller, user [20]byte, score uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, registryModule); err != nil {
		return err
	}
	updater, err := r.isUpdater(caller)
	if err != nil {
		return err
	}
	if !updater {
		return ErrUnauthorizedUpdater
	}
	if score > MaxCreditScore {
		return ErrInvalidCreditScore
	}
	return r.setScore(user, score)
}

func (r *Registry) setScore(user [20]byte, score uint64) error {
	att, err := r.attestation(user)
	if err != nil {
		return err
	}
	if att == nil {
		return ErrPassportDoesNotExist
	}
	oldScore := att.CreditScore
	att.CreditScore = score
	att.Tier = TierForScore(score)
	att.UpdatedAt = uint64(r.nowFn())
	if err := r.state.KVPut(attestationKey(user), att); err != nil {
		return err
	}
	if oldScore != score {
		r.emit(events.PassportScoreUpdated{Owner: user, OldScore: oldScore, NewScore: score})
	}
	return nil
}

// MirrorCreditScore applies a ledger-side score change to the user's
// attestation when one exists. Users without an attestation are skipped: the
// ledger tracks scores independently and the registry only mirrors.
func (r *Registry) MirrorCreditScore(user [20]byte, score uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	exists, err := r.state.KVHas(attestationKey(user))
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if score > MaxCreditScore {
		score = MaxCreditScore
	}
	return r.setScore(user, score)
}

// Transfer always fails. Attestations are bound to their owner for life.
func (r *Registry) Transfer(caller, from, to [20]byte) error {
	return ErrNonTransferable
}

// Deactivate marks an attestation inactive without destroying its history.
// Owner only.
func (r *Registry) Deactivate(caller, user [20]byte) error {
	return r.setActive(caller, user, false)
}

// Reactivate re-enables a previously deactivated attestation. Owner only.
func (r *Registry) Reactivate(caller, user [20]byte) error {
	return r.setActive(caller, user, true)
}

func (r *Registry) setActive(caller, user [20]byte, active bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	att, err := r.attestation(user)
	if err != nil {
		return err
	}
	if att == nil {
		return ErrPassportDoesNotExist
	}
	if att.Active == active {
		return nil
	}
	att.Active = active
	att.UpdatedAt = uint64(r.nowFn())
	if err := r.state.KVPut(attestationKey(user), att); err != nil {
		return err
	}
	r.emit(events.PassportStatusChanged{Owner: user, Active: active})
	return nil
}

// AttestationOf returns the user's attestation, or nil when none exists.
func (r *Registry) AttestationOf(user [20]byte) (*Attestation, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	att, err := r.attestation(user)
	if err != nil {
		return nil, err
	}
	return att.Clone(), nil
}

// HasPassport reports whether the user holds an attestation.
func (r *Registry) HasPassport(user [20]byte) (bool, error) {
	if r == nil || r.state == nil {
		return false, errNilState
	}
	return r.state.KVHas(attestationKey(user))
}

func (r *Registry) attestation(user [20]byte) (*Attestation, error) {
	var att Attestation
	ok, err := r.state.KVGet(attestationKey(user), &att)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &att, nil
}

func normalizeProtocols(protocols []string) []string {
	if len(protocols) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(protocols))
	out := make([]string, 0, len(protocols))
	for _, p := range protocols {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

package ledger

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"creditbridge/core/events"
	nativecommon "creditbridge/native/common"
	"creditbridge/native/oracle"
)

var (
	errNilState = errors.New("ledger engine: state not configured")
	errNoOracle = errors.New("ledger engine: price source not configured")

	// ErrUnauthorized marks admin calls from a non-owner address.
	ErrUnauthorized = errors.New("ledger engine: caller not authorized")
	// ErrInvalidAmount marks zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger engine: amount must be positive")
	// ErrZeroAddress marks operations against the zero address.
	ErrZeroAddress = errors.New("ledger engine: zero address")
	// ErrAssetNotRegistered marks deposits of unknown assets.
	ErrAssetNotRegistered = errors.New("ledger engine: asset not registered")
	// ErrAssetDisabled marks deposits of registered but disabled assets.
	ErrAssetDisabled = errors.New("ledger engine: asset disabled")
	// ErrInvalidCreditScore marks borrow attempts below the configured
	// minimum score.
	ErrInvalidCreditScore = errors.New("ledger engine: credit score below minimum")
	// ErrInsufficientCollateral marks borrow attempts beyond the LTV-adjusted
	// capacity.
	ErrInsufficientCollateral = errors.New("ledger engine: insufficient collateral")
)

var (
	basisPoints = big.NewInt(10_000)
	ray         = big.NewInt(1_000_000_000_000_000_000)
)

// maxHealthFactor is the sentinel reported for debt-free positions.
var maxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

const moduleName = "ledger"

// MaxLTVBps caps borrowing at 75% of deposited collateral value.
const MaxLTVBps uint64 = 7_500

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

// AttestationSink receives credit score changes so the reputation registry can
// mirror the ledger's view. Wired at configuration time; a nil sink disables
// the feedback.
type AttestationSink interface {
	MirrorCreditScore(user [20]byte, score uint64) error
}

// DebtMinter issues the approved debt on the swap engine. Wired at
// configuration time; a nil minter records the approval without issuing.
type DebtMinter interface {
	Mint(user [20]byte, amount *big.Int) error
}

// Engine owns per-user deposit and borrow totals, credit scores and health
// factors, and gates borrowing. It is the single authorization gate the swap
// engine relies on to mint debt.
type Engine struct {
	state          engineState
	prices         oracle.Source
	policy         *nativecommon.NetworkPolicy
	pauses         nativecommon.PauseView
	emitter        events.Emitter
	sink           AttestationSink
	minter         DebtMinter
	owner          [20]byte
	minCreditScore uint64
	nowFn          func() int64
}

// NewEngine constructs a ledger engine owned by the given admin address and
// requiring at least minCreditScore before approving a borrow.
func NewEngine(owner [20]byte, minCreditScore uint64) *Engine {
	return &Engine{
		owner:          owner,
		minCreditScore: minCreditScore,
		policy:         nativecommon.NewNetworkPolicy(),
		emitter:        events.NoopEmitter{},
		nowFn:          func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPriceSource wires the oracle consulted for deposit valuation.
func (e *Engine) SetPriceSource(src oracle.Source) {
	if e == nil {
		return
	}
	e.prices = src
}

// SetPauses wires the pause view guarding mutating entry points.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAttestationSink wires the reputation registry feedback capability.
func (e *Engine) SetAttestationSink(sink AttestationSink) {
	if e == nil {
		return
	}
	e.sink = sink
}

// SetDebtMinter wires the swap engine's issuance capability so approved
// borrows turn into minted debt.
func (e *Engine) SetDebtMinter(minter DebtMinter) {
	if e == nil {
		return
	}
	e.minter = minter
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Policy exposes the ledger's network policy for configuration.
func (e *Engine) Policy() *nativecommon.NetworkPolicy {
	if e == nil {
		return nil
	}
	return e.policy
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// RegisterAsset makes an asset depositable, binding it to a price source
// reference. Owner only.
func (e *Engine) RegisterAsset(caller [20]byte, asset, priceSource string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	name := strings.ToUpper(strings.TrimSpace(asset))
	if name == "" {
		return ErrAssetNotRegistered
	}
	entry := &AssetRegistryEntry{PriceSource: strings.TrimSpace(priceSource), Enabled: true}
	if err := e.state.KVPut(assetKey(name), entry); err != nil {
		return err
	}
	e.emit(events.AssetRegistered{Asset: name, PriceSource: entry.PriceSource})
	return nil
}

// SetAssetEnabled toggles deposits for a registered asset. Owner only.
func (e *Engine) SetAssetEnabled(caller [20]byte, asset string, enabled bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	entry, err := e.assetEntry(asset)
	if err != nil {
		return err
	}
	entry.Enabled = enabled
	if err := e.state.KVPut(assetKey(asset), entry); err != nil {
		return err
	}
	if !enabled {
		e.emit(events.AssetDisabled{Asset: strings.ToUpper(strings.TrimSpace(asset))})
	}
	return nil
}

func (e *Engine) assetEntry(asset string) (*AssetRegistryEntry, error) {
	var entry AssetRegistryEntry
	ok, err := e.state.KVGet(assetKey(asset), &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAssetNotRegistered
	}
	return &entry, nil
}

// ProcessDeposit credits a relayed deposit to the user's collateral position.
// Each accepted notice adds value; duplicate-notice protection lives in the
// inbound handler, not here.
func (e *Engine) ProcessDeposit(user [20]byte, asset string, amount *big.Int, sourceNetwork string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if user == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := e.assetEntry(asset)
	if err != nil {
		return nil, err
	}
	if !entry.Enabled {
		return nil, ErrAssetDisabled
	}
	if e.prices == nil {
		return nil, errNoOracle
	}
	quote, err := e.prices.Quote(asset)
	if err != nil {
		// A stale or failing price aborts the deposit rather than falling
		// back to a default valuation.
		return nil, err
	}
	valueUSD := usdValue(amount, quote.Rate)

	profile, err := e.ensureProfile(user)
	if err != nil {
		return nil, err
	}
	record, err := e.depositRecord(user, asset)
	if err != nil {
		return nil, err
	}

	now := e.nowFn()
	record = new(big.Int).Add(record, amount)
	profile.TotalDeposited = new(big.Int).Add(profile.TotalDeposited, valueUSD)
	profile.HealthFactor = healthFactor(profile.TotalDeposited, profile.TotalBorrowed)
	profile.LastUpdated = uint64(now)

	if err := e.state.KVPut(depositKey(user, asset), record); err != nil {
		return nil, err
	}
	if err := e.putProfile(user, profile); err != nil {
		return nil, err
	}

	e.emit(events.DepositReceived{
		User:          user,
		Asset:         asset,
		Amount:        amount,
		ValueUSD:      valueUSD,
		SourceNetwork: sourceNetwork,
		Timestamp:     now,
	})
	return valueUSD, nil
}

// SetCreditScore assigns a user's credit score, clamped to [0, 1000]. Owner
// only. The attestation sink, when wired, mirrors the change into the
// reputation registry.
func (e *Engine) SetCreditScore(caller, user [20]byte, score uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if user == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	profile, err := e.ensureProfile(user)
	if err != nil {
		return err
	}
	oldScore := profile.CreditScore
	profile.CreditScore = ClampScore(score)
	profile.LastUpdated = uint64(e.nowFn())
	if err := e.putProfile(user, profile); err != nil {
		return err
	}
	e.emit(events.CreditScoreUpdated{User: user, OldScore: oldScore, NewScore: profile.CreditScore})
	if e.sink != nil {
		if err := e.sink.MirrorCreditScore(user, profile.CreditScore); err != nil {
			return err
		}
	}
	return nil
}

// ApproveBorrow authorizes issuing `amount` of debt asset toward destNetwork.
// The capacity is totalDeposited scaled by MAX_LTV and the caller's credit
// tier multiplier. The wired debt minter issues the amount once the borrow
// has committed.
func (e *Engine) ApproveBorrow(user [20]byte, amount *big.Int, destNetwork string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if user == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.policy.CheckDestination(destNetwork); err != nil {
		return err
	}
	profile, err := e.ensureProfile(user)
	if err != nil {
		return err
	}
	if profile.CreditScore < e.minCreditScore {
		return ErrInvalidCreditScore
	}

	available := borrowCapacity(profile.TotalDeposited, profile.CreditScore)
	projected := new(big.Int).Add(profile.TotalBorrowed, amount)
	if projected.Cmp(available) > 0 {
		return ErrInsufficientCollateral
	}

	profile.TotalBorrowed = projected
	profile.HealthFactor = healthFactor(profile.TotalDeposited, profile.TotalBorrowed)
	profile.LastUpdated = uint64(e.nowFn())
	if err := e.putProfile(user, profile); err != nil {
		return err
	}
	e.emit(events.BorrowApproved{
		User:        user,
		Amount:      amount,
		DestNetwork: destNetwork,
		CreditScore: profile.CreditScore,
	})
	if e.minter != nil {
		if err := e.minter.Mint(user, amount); err != nil {
			return err
		}
	}
	return nil
}

// HealthFactor returns the user's current collateralization ratio in 1e18
// fixed point. Debt-free positions report the maximal sentinel.
func (e *Engine) HealthFactor(user [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, err := e.ensureProfile(user)
	if err != nil {
		return nil, err
	}
	return healthFactor(profile.TotalDeposited, profile.TotalBorrowed), nil
}

// Profile returns a copy of the user's current profile for the read surface.
func (e *Engine) Profile(user [20]byte) (*UserProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, err := e.ensureProfile(user)
	if err != nil {
		return nil, err
	}
	profile.HealthFactor = healthFactor(profile.TotalDeposited, profile.TotalBorrowed)
	return profile, nil
}

// DepositRecord returns the amount of the given asset the user has deposited.
func (e *Engine) DepositRecord(user [20]byte, asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.depositRecord(user, asset)
}

func (e *Engine) depositRecord(user [20]byte, asset string) (*big.Int, error) {
	var record big.Int
	ok, err := e.state.KVGet(depositKey(user, asset), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &record, nil
}

type storedProfile struct {
	TotalDeposited *big.Int
	TotalBorrowed  *big.Int
	CreditScore    uint64
	HealthFactor   *big.Int
	HasAttestation bool
	LastUpdated    uint64
}

func (e *Engine) ensureProfile(user [20]byte) (*UserProfile, error) {
	var stored storedProfile
	ok, err := e.state.KVGet(profileKey(user), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &UserProfile{
			TotalDeposited: big.NewInt(0),
			TotalBorrowed:  big.NewInt(0),
			HealthFactor:   new(big.Int).Set(maxHealthFactor),
		}, nil
	}
	profile := &UserProfile{
		TotalDeposited: stored.TotalDeposited,
		TotalBorrowed:  stored.TotalBorrowed,
		CreditScore:    stored.CreditScore,
		HealthFactor:   stored.HealthFactor,
		HasAttestation: stored.HasAttestation,
		LastUpdated:    stored.LastUpdated,
	}
	if profile.TotalDeposited == nil {
		profile.TotalDeposited = big.NewInt(0)
	}
	if profile.TotalBorrowed == nil {
		profile.TotalBorrowed = big.NewInt(0)
	}
	if profile.HealthFactor == nil {
		profile.HealthFactor = new(big.Int).Set(maxHealthFactor)
	}
	return profile, nil
}

func (e *Engine) putProfile(user [20]byte, profile *UserProfile) error {
	stored := storedProfile{
		TotalDeposited: profile.TotalDeposited,
		TotalBorrowed:  profile.TotalBorrowed,
		CreditScore:    profile.CreditScore,
		HealthFactor:   profile.HealthFactor,
		HasAttestation: profile.HasAttestation,
		LastUpdated:    profile.LastUpdated,
	}
	return e.state.KVPut(profileKey(user), &stored)
}

// MarkAttested records that the user now holds a reputation attestation.
func (e *Engine) MarkAttested(user [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	profile, err := e.ensureProfile(user)
	if err != nil {
		return err
	}
	profile.HasAttestation = true
	return e.putProfile(user, profile)
}

// healthFactor computes deposited*MAX_LTV/borrowed in 1e18 fixed point.
func healthFactor(deposited, borrowed *big.Int) *big.Int {
	if borrowed == nil || borrowed.Sign() == 0 {
		return new(big.Int).Set(maxHealthFactor)
	}
	if deposited == nil || deposited.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(deposited, new(big.Int).SetUint64(MaxLTVBps))
	num.Mul(num, ray)
	den := new(big.Int).Mul(borrowed, basisPoints)
	return num.Quo(num, den)
}

// borrowCapacity applies MAX_LTV and the credit-tier multiplier to the
// deposited value. Higher tiers unlock a modest capacity bonus.
func borrowCapacity(deposited *big.Int, score uint64) *big.Int {
	if deposited == nil || deposited.Sign() == 0 {
		return big.NewInt(0)
	}
	capacity := new(big.Int).Mul(deposited, new(big.Int).SetUint64(MaxLTVBps))
	capacity.Quo(capacity, basisPoints)
	capacity.Mul(capacity, new(big.Int).SetUint64(tierMultiplierBps(score)))
	return capacity.Quo(capacity, basisPoints)
}

func tierMultiplierBps(score uint64) uint64 {
	switch {
	case score >= 850:
		return 11_000
	case score >= 700:
		return 10_500
	default:
		return 10_000
	}
}

// usdValue converts a token amount to its USD-normalized value using the
// quoted rate, flooring toward zero.
func usdValue(amount *big.Int, rate *big.Rat) *big.Int {
	if amount == nil || rate == nil || rate.Sign() <= 0 {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(amount, rate.Num())
	return value.Quo(value, rate.Denom())
}

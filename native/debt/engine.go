package debt

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"creditbridge/core/events"
	nativecommon "creditbridge/native/common"
	"creditbridge/native/messaging"
	"creditbridge/observability/metrics"
)

var (
	errNilState  = errors.New("debt engine: state not configured")
	errNilSender = errors.New("debt engine: message channel not configured")

	// ErrUnauthorizedMint marks mint attempts from callers that are neither
	// the ledger delegate nor a trusted remote engine.
	ErrUnauthorizedMint = errors.New("debt engine: unauthorized mint")
	// ErrZeroAmount marks zero or negative amounts.
	ErrZeroAmount = errors.New("debt engine: amount must be positive")
	// ErrZeroAddress marks operations against the zero address.
	ErrZeroAddress = errors.New("debt engine: zero address")
	// ErrInsufficientDSCBalance marks burns beyond balance, allowance or
	// borrowed trackers.
	ErrInsufficientDSCBalance = errors.New("debt engine: insufficient DSC balance")
	// ErrDestinationChainNotAllowed marks swaps toward networks with no
	// registered remote engine.
	ErrDestinationChainNotAllowed = errors.New("debt engine: destination chain not allowed")
	// ErrMessageAlreadyProcessed marks redelivered mint instructions.
	ErrMessageAlreadyProcessed = errors.New("debt engine: message already processed")
	// ErrUnauthorized marks admin calls from a non-owner address.
	ErrUnauthorized = errors.New("debt engine: caller not authorized")
)

const moduleName = "debt"

var basisPoints = big.NewInt(10_000)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

// Engine mints and burns the synthetic debt asset under ledger authorization
// and moves debt positions across networks.
type Engine struct {
	state         engineState
	sender        messaging.Sender
	policy        *nativecommon.NetworkPolicy
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	owner         [20]byte
	localDelegate [20]byte
	localNetwork  string
	swapFeeBps    uint64
	nowFn         func() int64
}

// NewEngine constructs a swap engine. localDelegate is the only local caller
// allowed to mint (normally the ledger); swapFeeBps prices the cross-network
// messaging fee reported on initiation.
func NewEngine(owner, localDelegate [20]byte, localNetwork string, swapFeeBps uint64) *Engine {
	return &Engine{
		owner:         owner,
		localDelegate: localDelegate,
		localNetwork:  strings.ToLower(strings.TrimSpace(localNetwork)),
		swapFeeBps:    swapFeeBps,
		policy:        nativecommon.NewNetworkPolicy(),
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetSender wires the outbound cross-network channel.
func (e *Engine) SetSender(sender messaging.Sender) {
	if e == nil {
		return
	}
	e.sender = sender
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

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Policy exposes the engine's network policy for configuration.
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

// RegisterRemoteEngine maps a destination network to its engine address. The
// mapping both registers the remote engine and allowlists the destination;
// the remote address is also trusted as an inbound sender. Owner only.
func (e *Engine) RegisterRemoteEngine(caller [20]byte, network string, engineAddr [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if engineAddr == ([20]byte{}) {
		return ErrZeroAddress
	}
	name := strings.ToLower(strings.TrimSpace(network))
	if name == "" {
		return ErrDestinationChainNotAllowed
	}
	if err := e.state.KVPut(remoteKey(name), engineAddr[:]); err != nil {
		return err
	}
	e.policy.AllowDestination(name)
	e.policy.AllowSource(name)
	e.policy.TrustSender(engineAddr)
	return nil
}

func (e *Engine) remoteEngine(network string) ([20]byte, bool, error) {
	var raw []byte
	ok, err := e.state.KVGet(remoteKey(network), &raw)
	if err != nil || !ok || len(raw) != 20 {
		return [20]byte{}, false, err
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, true, nil
}

// Minter adapts the engine to the collateral ledger's issuance capability,
// pinning the delegate caller local mints are authorized under.
type Minter struct {
	engine   *Engine
	delegate [20]byte
}

// NewMinter binds the engine to the delegate address it accepts mints from.
func NewMinter(engine *Engine, delegate [20]byte) *Minter {
	return &Minter{engine: engine, delegate: delegate}
}

// Mint issues amount of debt asset to the user under the delegate authority.
func (m *Minter) Mint(user [20]byte, amount *big.Int) error {
	if m == nil || m.engine == nil {
		return errNilState
	}
	return m.engine.MintDSC(m.delegate, user, amount, "")
}

// MintDSC issues debt asset to the user. Only the configured ledger delegate
// may call this locally; relayed mints arrive through the inbound handler
// which performs its own authorization. msgID is empty for local mints.
func (e *Engine) MintDSC(caller, user [20]byte, amount *big.Int, msgID string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.localDelegate {
		return ErrUnauthorizedMint
	}
	return e.mint(user, amount, msgID)
}

func (e *Engine) mint(user [20]byte, amount *big.Int, msgID string) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if user == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := e.bigIntAt(balanceKey(user))
	if err != nil {
		return err
	}
	borrowed, err := e.bigIntAt(borrowedKey(user))
	if err != nil {
		return err
	}
	supply, err := e.bigIntAt(supplyKey)
	if err != nil {
		return err
	}

	balance = new(big.Int).Add(balance, amount)
	borrowed = new(big.Int).Add(borrowed, amount)
	supply = new(big.Int).Add(supply, amount)

	if err := e.state.KVPut(balanceKey(user), balance); err != nil {
		return err
	}
	if err := e.state.KVPut(borrowedKey(user), borrowed); err != nil {
		return err
	}
	if err := e.state.KVPut(supplyKey, supply); err != nil {
		return err
	}

	e.emit(events.DSCMinted{User: user, Amount: amount, MessageID: msgID})
	return nil
}

// Approve authorizes the engine to debit up to amount of the caller's debt
// asset balance during BurnDSC.
func (e *Engine) Approve(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrZeroAmount
	}
	return e.state.KVPut(allowanceKey(caller), amount)
}

// BurnDSC retires amount of the caller's debt asset. The caller must have
// pre-authorized the engine via Approve.
func (e *Engine) BurnDSC(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := e.bigIntAt(balanceKey(caller))
	if err != nil {
		return err
	}
	allowance, err := e.bigIntAt(allowanceKey(caller))
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 || allowance.Cmp(amount) < 0 {
		return ErrInsufficientDSCBalance
	}
	if err := e.burn(caller, amount); err != nil {
		return err
	}
	allowance = new(big.Int).Sub(allowance, amount)
	if err := e.state.KVPut(allowanceKey(caller), allowance); err != nil {
		return err
	}
	e.emit(events.DSCBurned{User: caller, Amount: amount})
	return nil
}

func (e *Engine) burn(user [20]byte, amount *big.Int) error {
	balance, err := e.bigIntAt(balanceKey(user))
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientDSCBalance
	}
	borrowed, err := e.bigIntAt(borrowedKey(user))
	if err != nil {
		return err
	}
	supply, err := e.bigIntAt(supplyKey)
	if err != nil {
		return err
	}

	balance = new(big.Int).Sub(balance, amount)
	if borrowed.Cmp(amount) < 0 {
		borrowed = big.NewInt(0)
	} else {
		borrowed = new(big.Int).Sub(borrowed, amount)
	}
	supply = new(big.Int).Sub(supply, amount)
	if supply.Sign() < 0 {
		supply = big.NewInt(0)
	}

	if err := e.state.KVPut(balanceKey(user), balance); err != nil {
		return err
	}
	if err := e.state.KVPut(borrowedKey(user), borrowed); err != nil {
		return err
	}
	return e.state.KVPut(supplyKey, supply)
}

// BurnAndMint burns the caller's debt locally and instructs the destination
// network's engine to mint the same amount. The burn commits before the
// outbound send; the pending record keyed by the outbound message id is an
// audit trail, never removed.
func (e *Engine) BurnAndMint(caller [20]byte, amount *big.Int, destNetwork string) (*PendingSwap, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.sender == nil {
		return nil, errNilSender
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if _, ok, err := e.remoteEngine(destNetwork); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrDestinationChainNotAllowed
	}
	if err := e.policy.CheckDestination(destNetwork); err != nil {
		return nil, ErrDestinationChainNotAllowed
	}
	borrowed, err := e.bigIntAt(borrowedKey(caller))
	if err != nil {
		return nil, err
	}
	if borrowed.Cmp(amount) < 0 {
		return nil, ErrInsufficientDSCBalance
	}

	// Burn before any outbound effect.
	if err := e.burn(caller, amount); err != nil {
		return nil, err
	}

	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(e.swapFeeBps))
	fee.Quo(fee, basisPoints)

	payload, err := messaging.EncodeMintInstruction(&messaging.MintInstruction{User: caller, Amount: amount})
	if err != nil {
		return nil, err
	}
	msgID, err := e.sender.Send(destNetwork, payload)
	if err != nil {
		return nil, err
	}

	pending := &PendingSwap{
		MessageID:     msgID,
		User:          caller,
		Amount:        amount,
		SourceNetwork: e.localNetwork,
		DestNetwork:   strings.ToLower(strings.TrimSpace(destNetwork)),
		CreatedAt:     e.nowFn(),
	}
	if err := e.state.KVPut(pendingKey(msgID), pending.toStored()); err != nil {
		return nil, err
	}

	metrics.Channel().SwapInitiated()
	e.emit(events.CrossChainSwapInitiated{
		User:        caller,
		Amount:      amount,
		DestNetwork: pending.DestNetwork,
		MessageID:   msgID,
		Fee:         fee,
	})
	return pending.Clone(), nil
}

// PendingSwapByID returns the recorded swap for a message id, if any.
func (e *Engine) PendingSwapByID(msgID string) (*PendingSwap, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	var stored storedPendingSwap
	ok, err := e.state.KVGet(pendingKey(msgID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toPendingSwap(), true, nil
}

// BalanceOf returns the debt asset balance for an address.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.bigIntAt(balanceKey(addr))
}

// BorrowedBy returns the cumulative borrow tracker for an address.
func (e *Engine) BorrowedBy(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.bigIntAt(borrowedKey(addr))
}

// TotalSupply returns the outstanding debt asset supply on this network.
func (e *Engine) TotalSupply() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.bigIntAt(supplyKey)
}

func (e *Engine) bigIntAt(key []byte) (*big.Int, error) {
	var value big.Int
	ok, err := e.state.KVGet(key, &value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &value, nil
}

package relay

import (
	"errors"
	"math/big"
	"strings"

	"creditbridge/core/events"
	nativecommon "creditbridge/native/common"
	"creditbridge/native/messaging"
)

var (
	errNilState  = errors.New("relay engine: state not configured")
	errNilSender = errors.New("relay engine: message channel not configured")

	// ErrUnauthorized marks admin calls from a non-owner address.
	ErrUnauthorized = errors.New("relay engine: caller not authorized")
	// ErrInvalidAmount marks zero or negative amounts.
	ErrInvalidAmount = errors.New("relay engine: amount must be positive")
	// ErrZeroAddress marks operations against the zero address.
	ErrZeroAddress = errors.New("relay engine: zero address")
	// ErrAssetNotDepositable marks deposits of assets outside the allowlist.
	ErrAssetNotDepositable = errors.New("relay engine: asset not depositable")
	// ErrInsufficientBalance marks deposits beyond the sender's holdings.
	ErrInsufficientBalance = errors.New("relay engine: insufficient balance")
	// ErrInsufficientTokenBalance marks withdrawals beyond the deposit record.
	ErrInsufficientTokenBalance = errors.New("relay engine: insufficient token balance")
	// ErrNothingToWithdraw marks emergency sweeps of empty balances.
	ErrNothingToWithdraw = errors.New("relay engine: nothing to withdraw")
)

const moduleName = "relay"

var (
	depositPrefix = []byte("relay/deposit/")
	assetPrefix   = []byte("relay/asset/")
)

func depositKey(user [20]byte, asset string) []byte {
	key := append(append([]byte(nil), depositPrefix...), user[:]...)
	key = append(key, '/')
	return append(key, normalizeAsset(asset)...)
}

func assetKey(asset string) []byte {
	return append(append([]byte(nil), assetPrefix...), normalizeAsset(asset)...)
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	AssetBalance(asset string, addr [20]byte) (*big.Int, error)
	SetAssetBalance(asset string, addr [20]byte, amount *big.Int) error
}

// Engine custodies deposited assets on their origin network and forwards
// deposit notices toward the ledger's network.
type Engine struct {
	state         engineState
	sender        messaging.Sender
	policy        *nativecommon.NetworkPolicy
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	owner         [20]byte
	moduleAddress [20]byte
	localNetwork  string
	ledgerNetwork string
}

// NewEngine constructs a relay engine. moduleAddr is the custody account
// deposits are parked under; ledgerNetwork is where deposit notices are sent.
func NewEngine(owner, moduleAddr [20]byte, localNetwork, ledgerNetwork string) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddr,
		localNetwork:  strings.ToLower(strings.TrimSpace(localNetwork)),
		ledgerNetwork: strings.ToLower(strings.TrimSpace(ledgerNetwork)),
		policy:        nativecommon.NewNetworkPolicy(),
		emitter:       events.NoopEmitter{},
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

// Policy exposes the relay's network policy for configuration.
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

// AddDepositableAsset allowlists an asset for deposits. Owner only.
func (e *Engine) AddDepositableAsset(caller [20]byte, asset string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	if normalizeAsset(asset) == "" {
		return ErrAssetNotDepositable
	}
	return e.state.KVPut(assetKey(asset), true)
}

// RemoveDepositableAsset removes an asset from the allowlist. Owner only.
// Existing deposit records stay withdrawable.
func (e *Engine) RemoveDepositableAsset(caller [20]byte, asset string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrUnauthorized
	}
	return e.state.KVPut(assetKey(asset), false)
}

func (e *Engine) assetDepositable(asset string) (bool, error) {
	var enabled bool
	ok, err := e.state.KVGet(assetKey(asset), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}

// DepositToken moves amount of the asset into relay custody, records the
// deposit and forwards a notice toward the ledger network. The returned string
// is the correlation id of the outbound notice. All local state commits before
// the send.
func (e *Engine) DepositToken(user [20]byte, asset string, amount *big.Int) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	if e.sender == nil {
		return "", errNilSender
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return "", err
	}
	if user == ([20]byte{}) {
		return "", ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	depositable, err := e.assetDepositable(asset)
	if err != nil {
		return "", err
	}
	if !depositable {
		return "", ErrAssetNotDepositable
	}
	if err := e.policy.CheckDestination(e.ledgerNetwork); err != nil {
		return "", err
	}

	userBalance, err := e.state.AssetBalance(asset, user)
	if err != nil {
		return "", err
	}
	if userBalance.Cmp(amount) < 0 {
		return "", ErrInsufficientBalance
	}
	custodyBalance, err := e.state.AssetBalance(asset, e.moduleAddress)
	if err != nil {
		return "", err
	}
	record, err := e.depositRecord(user, asset)
	if err != nil {
		return "", err
	}

	userBalance = new(big.Int).Sub(userBalance, amount)
	custodyBalance = new(big.Int).Add(custodyBalance, amount)
	record = new(big.Int).Add(record, amount)

	if err := e.state.SetAssetBalance(asset, user, userBalance); err != nil {
		return "", err
	}
	if err := e.state.SetAssetBalance(asset, e.moduleAddress, custodyBalance); err != nil {
		return "", err
	}
	if err := e.state.KVPut(depositKey(user, asset), record); err != nil {
		return "", err
	}

	payload, err := messaging.EncodeDepositNotice(&messaging.DepositNotice{
		User:          user,
		Asset:         normalizeAsset(asset),
		Amount:        amount,
		SourceNetwork: e.localNetwork,
	})
	if err != nil {
		return "", err
	}
	correlationID, err := e.sender.Send(e.ledgerNetwork, payload)
	if err != nil {
		return "", err
	}

	e.emit(events.TokenDeposited{
		User:          user,
		Asset:         asset,
		Amount:        amount,
		DestNetwork:   e.ledgerNetwork,
		CorrelationID: correlationID,
	})
	return correlationID, nil
}

// WithdrawToken releases custody back to the user, bounded by their deposit
// record.
func (e *Engine) WithdrawToken(user [20]byte, asset string, amount *big.Int) error {
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
	record, err := e.depositRecord(user, asset)
	if err != nil {
		return err
	}
	if record.Cmp(amount) < 0 {
		return ErrInsufficientTokenBalance
	}
	custodyBalance, err := e.state.AssetBalance(asset, e.moduleAddress)
	if err != nil {
		return err
	}
	if custodyBalance.Cmp(amount) < 0 {
		return ErrInsufficientTokenBalance
	}
	userBalance, err := e.state.AssetBalance(asset, user)
	if err != nil {
		return err
	}

	record = new(big.Int).Sub(record, amount)
	custodyBalance = new(big.Int).Sub(custodyBalance, amount)
	userBalance = new(big.Int).Add(userBalance, amount)

	if err := e.state.KVPut(depositKey(user, asset), record); err != nil {
		return err
	}
	if err := e.state.SetAssetBalance(asset, e.moduleAddress, custodyBalance); err != nil {
		return err
	}
	if err := e.state.SetAssetBalance(asset, user, userBalance); err != nil {
		return err
	}

	e.emit(events.TokenWithdrawn{User: user, Asset: asset, Amount: amount})
	return nil
}

// EmergencyWithdraw sweeps the full stray balance of an asset from the relay
// module account to the owner. Owner only.
func (e *Engine) EmergencyWithdraw(caller [20]byte, asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if caller != e.owner {
		return nil, ErrUnauthorized
	}
	balance, err := e.state.AssetBalance(asset, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	ownerBalance, err := e.state.AssetBalance(asset, e.owner)
	if err != nil {
		return nil, err
	}
	ownerBalance = new(big.Int).Add(ownerBalance, balance)
	if err := e.state.SetAssetBalance(asset, e.moduleAddress, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.state.SetAssetBalance(asset, e.owner, ownerBalance); err != nil {
		return nil, err
	}
	e.emit(events.EmergencyWithdrawal{Owner: e.owner, Asset: asset, Amount: balance})
	return balance, nil
}

// DepositRecord returns the user's recorded deposit for the asset.
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

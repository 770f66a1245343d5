package bridge

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"creditbridge/core/events"
	"creditbridge/core/types"
	nativecommon "creditbridge/native/common"
	"creditbridge/observability/metrics"
)

var (
	errNilState = errors.New("bridge: state not configured")

	// ErrUnauthorized marks owner-only calls from other addresses.
	ErrUnauthorized = errors.New("bridge: caller not authorized")
	// ErrInvalidAmount marks zero or negative amounts.
	ErrInvalidAmount = errors.New("bridge: invalid amount")
	// ErrZeroAddress marks operations against the zero address.
	ErrZeroAddress = errors.New("bridge: zero address")
	// ErrInsufficientBalance marks moves beyond the holder's balance.
	ErrInsufficientBalance = errors.New("bridge: insufficient balance")
	// ErrInsufficientAllowance marks pulls beyond the approved allowance.
	ErrInsufficientAllowance = errors.New("bridge: insufficient allowance")
	// ErrTransactionAlreadyProcessed marks replayed receive attempts.
	ErrTransactionAlreadyProcessed = errors.New("bridge: transaction already processed")
	// ErrInvalidFee marks fee configurations beyond the 10% combined bound.
	ErrInvalidFee = errors.New("bridge: invalid fee")
	// ErrInvalidNetwork marks sends with an empty target network.
	ErrInvalidNetwork = errors.New("bridge: invalid network")
	// ErrInvalidTxHash marks receives with an empty source transaction hash.
	ErrInvalidTxHash = errors.New("bridge: invalid transaction hash")
	// ErrNotBridgeOperator marks completion attempts from non-operators.
	ErrNotBridgeOperator = errors.New("bridge: caller is not a bridge operator")
)

const tokenModule = "bridge"

var basisPoints = big.NewInt(10_000)

type tokenState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, acc *types.Account) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

// Token is the fee-bearing, freely transferable bridge token with its own
// cross-network send and receive paths. Receives are operator-gated and
// replay-protected by transaction hash.
type Token struct {
	state     tokenState
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	owner     [20]byte
	operators map[[20]byte]bool
	nowFn     func() int64
}

// NewToken constructs a bridge token owned by the given address.
func NewToken(owner [20]byte) *Token {
	return &Token{
		owner:     owner,
		operators: make(map[[20]byte]bool),
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the token to the external persistence layer.
func (t *Token) SetState(state tokenState) { t.state = state }

// SetPauses wires the pause view guarding mutating entry points.
func (t *Token) SetPauses(p nativecommon.PauseView) {
	if t == nil {
		return
	}
	t.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if t == nil {
		return
	}
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (t *Token) SetNowFunc(now func() int64) {
	if t == nil || now == nil {
		return
	}
	t.nowFn = now
}

func (t *Token) emit(event events.Event) {
	if t == nil || t.emitter == nil {
		return
	}
	t.emitter.Emit(event)
}

// AddOperator registers an address allowed to credit cross-network receives.
// Owner only.
func (t *Token) AddOperator(caller, operator [20]byte) error {
	if t == nil {
		return errNilState
	}
	if caller != t.owner {
		return ErrUnauthorized
	}
	if operator == ([20]byte{}) {
		return ErrZeroAddress
	}
	t.operators[operator] = true
	t.emit(events.BridgeOperatorAdded{Operator: operator})
	return nil
}

// RemoveOperator revokes an operator. Owner only.
func (t *Token) RemoveOperator(caller, operator [20]byte) error {
	if t == nil {
		return errNilState
	}
	if caller != t.owner {
		return ErrUnauthorized
	}
	delete(t.operators, operator)
	t.emit(events.BridgeOperatorRemoved{Operator: operator})
	return nil
}

func (t *Token) isOperator(addr [20]byte) bool {
	return addr == t.owner || t.operators[addr]
}

// SetFees updates the send/receive fee configuration. Owner only; the combined
// fee is bounded at 10%.
func (t *Token) SetFees(caller [20]byte, cfg FeeConfig) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if caller != t.owner {
		return ErrUnauthorized
	}
	if !cfg.Valid() {
		return ErrInvalidFee
	}
	if err := t.state.KVPut(feeConfigKey, &cfg); err != nil {
		return err
	}
	t.emit(events.FeesUpdated{SendFeeBps: cfg.SendFeeBps, ReceiveFeeBps: cfg.ReceiveFeeBps})
	return nil
}

// Fees returns the current fee configuration.
func (t *Token) Fees() (FeeConfig, error) {
	if t == nil || t.state == nil {
		return FeeConfig{}, errNilState
	}
	var cfg FeeConfig
	if _, err := t.state.KVGet(feeConfigKey, &cfg); err != nil {
		return FeeConfig{}, err
	}
	return cfg, nil
}

// Mint issues new tokens to an address. Owner only; the router also mints via
// its completion path.
func (t *Token) Mint(caller, to [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if caller != t.owner {
		return ErrUnauthorized
	}
	return t.mint(to, amount)
}

func (t *Token) mint(to [20]byte, amount *big.Int) error {
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := t.state.GetAccount(to)
	if err != nil {
		return err
	}
	supply, err := t.supply()
	if err != nil {
		return err
	}
	acc.BalanceCBT = new(big.Int).Add(acc.BalanceCBT, amount)
	supply = new(big.Int).Add(supply, amount)
	if err := t.state.PutAccount(to, acc); err != nil {
		return err
	}
	return t.state.KVPut(supplyKey, supply)
}

func (t *Token) burnFrom(from [20]byte, amount *big.Int) error {
	acc, err := t.state.GetAccount(from)
	if err != nil {
		return err
	}
	if acc.BalanceCBT.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := t.supply()
	if err != nil {
		return err
	}
	acc.BalanceCBT = new(big.Int).Sub(acc.BalanceCBT, amount)
	supply = new(big.Int).Sub(supply, amount)
	if supply.Sign() < 0 {
		supply = big.NewInt(0)
	}
	if err := t.state.PutAccount(from, acc); err != nil {
		return err
	}
	return t.state.KVPut(supplyKey, supply)
}

// Transfer moves tokens between local addresses without fees.
func (t *Token) Transfer(from, to [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(t.pauses, tokenModule); err != nil {
		return err
	}
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := t.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceCBT.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := t.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.BalanceCBT = new(big.Int).Sub(fromAcc.BalanceCBT, amount)
	toAcc.BalanceCBT = new(big.Int).Add(toAcc.BalanceCBT, amount)
	if err := t.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return t.state.PutAccount(to, toAcc)
}

// Approve authorizes a spender to pull up to amount from the owner's balance.
func (t *Token) Approve(owner, spender [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if owner == ([20]byte{}) || spender == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.state.KVPut(allowanceKey(owner, spender), amount)
}

// TransferFrom moves tokens using a previously granted allowance.
func (t *Token) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := t.allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	allowance = new(big.Int).Sub(allowance, amount)
	return t.state.KVPut(allowanceKey(from, spender), allowance)
}

func (t *Token) allowance(owner, spender [20]byte) (*big.Int, error) {
	var value big.Int
	ok, err := t.state.KVGet(allowanceKey(owner, spender), &value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &value, nil
}

// CrossChainSend burns the full amount from the sender and records the
// post-fee net as a pending send for the audit trail.
func (t *Token) CrossChainSend(from, to [20]byte, amount *big.Int, targetNetwork string) (*PendingSend, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(t.pauses, tokenModule); err != nil {
		return nil, err
	}
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(targetNetwork) == "" {
		return nil, ErrInvalidNetwork
	}
	acc, err := t.state.GetAccount(from)
	if err != nil {
		return nil, err
	}
	if acc.BalanceCBT.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	cfg, err := t.Fees()
	if err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(cfg.SendFeeBps))
	fee.Quo(fee, basisPoints)
	net := new(big.Int).Sub(amount, fee)

	if err := t.burnFrom(from, amount); err != nil {
		return nil, err
	}
	seq, err := t.nextSeq(sendSeqKey)
	if err != nil {
		return nil, err
	}
	record := &PendingSend{
		From:          from,
		To:            to,
		Net:           net,
		Fee:           fee,
		TargetNetwork: strings.ToLower(strings.TrimSpace(targetNetwork)),
		CreatedAt:     t.nowFn(),
	}
	stored := &storedPendingSend{
		From:          record.From,
		To:            record.To,
		Net:           record.Net,
		Fee:           record.Fee,
		TargetNetwork: record.TargetNetwork,
		CreatedAt:     uint64(record.CreatedAt),
	}
	if err := t.state.KVPut(sendKey(seq), stored); err != nil {
		return nil, err
	}

	t.emit(events.CrossChainSend{
		From:          from,
		To:            to,
		Net:           net,
		Fee:           fee,
		TargetNetwork: record.TargetNetwork,
	})
	return record, nil
}

// CrossChainReceive credits a remote burn locally, minting amount minus the
// receive fee. Operator-gated; txHash identifies the remote transaction and
// drives replay protection.
func (t *Token) CrossChainReceive(caller, to [20]byte, amount *big.Int, sourceNetwork, txHash string) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(t.pauses, tokenModule); err != nil {
		return nil, err
	}
	if !t.isOperator(caller) {
		return nil, ErrNotBridgeOperator
	}
	if to == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(txHash) == "" {
		return nil, ErrInvalidTxHash
	}
	processed, err := t.state.KVHas(processedKey(txHash))
	if err != nil {
		return nil, err
	}
	if processed {
		metrics.Channel().ReplayRejected(tokenModule)
		return nil, ErrTransactionAlreadyProcessed
	}
	cfg, err := t.Fees()
	if err != nil {
		return nil, err
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(cfg.ReceiveFeeBps))
	fee.Quo(fee, basisPoints)
	net := new(big.Int).Sub(amount, fee)

	if err := t.mint(to, net); err != nil {
		return nil, err
	}
	if err := t.state.KVPut(processedKey(txHash), true); err != nil {
		return nil, err
	}

	metrics.Channel().MessageProcessed(tokenModule)
	t.emit(events.CrossChainReceive{
		To:            to,
		Net:           net,
		Fee:           fee,
		SourceNetwork: sourceNetwork,
		TxHash:        txHash,
	})
	return net, nil
}

// BalanceOf returns the bridge token balance for an address.
func (t *Token) BalanceOf(addr [20]byte) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	acc, err := t.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.BalanceCBT, nil
}

// TotalSupply returns the local token supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.supply()
}

func (t *Token) supply() (*big.Int, error) {
	var value big.Int
	ok, err := t.state.KVGet(supplyKey, &value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &value, nil
}

func (t *Token) nextSeq(key []byte) (uint64, error) {
	var seq uint64
	if _, err := t.state.KVGet(key, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := t.state.KVPut(key, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

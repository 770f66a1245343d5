package bridge

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"creditbridge/core/events"
	nativecommon "creditbridge/native/common"
	"creditbridge/observability/metrics"
)

var (
	// ErrUnsupportedChain marks transfers toward networks the router has not
	// been configured for.
	ErrUnsupportedChain = errors.New("bridge: unsupported chain")
	// ErrInvalidTransferAmount marks transfers outside the configured bounds.
	ErrInvalidTransferAmount = errors.New("bridge: transfer amount out of bounds")
	// ErrTransferNotFound marks completions against unknown transfer ids.
	ErrTransferNotFound = errors.New("bridge: pending transfer not found")
	// ErrTransferAlreadyCompleted marks repeated completion attempts.
	ErrTransferAlreadyCompleted = errors.New("bridge: transfer already completed")
	// ErrTransferMismatch marks completions whose parameters disagree with the
	// stored pending record.
	ErrTransferMismatch = errors.New("bridge: transfer parameters mismatch")
)

const routerModule = "bridgeRouter"

type routerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

// Router escrows bridge tokens for cross-network transfers. The sender
// approves the router, InitiateCrossChainTransfer pulls the tokens into the
// router's module account, and an operator releases them on the destination
// via CompleteCrossChainTransfer against the stored pending record.
type Router struct {
	state         routerState
	token         *Token
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	owner         [20]byte
	moduleAddress [20]byte
	localNetwork  string
	minTransfer   *big.Int
	maxTransfer   *big.Int
	nowFn         func() int64
}

// NewRouter constructs a router bound to the token and the router's custody
// account. minTransfer and maxTransfer bound the transferable amount; a nil
// maxTransfer disables the upper bound.
func NewRouter(owner, moduleAddress [20]byte, token *Token, localNetwork string, minTransfer, maxTransfer *big.Int) *Router {
	if minTransfer == nil {
		minTransfer = big.NewInt(1)
	}
	return &Router{
		token:         token,
		owner:         owner,
		moduleAddress: moduleAddress,
		localNetwork:  strings.ToLower(strings.TrimSpace(localNetwork)),
		minTransfer:   new(big.Int).Set(minTransfer),
		maxTransfer:   cloneOrNil(maxTransfer),
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// SetState wires the router to the external persistence layer.
func (r *Router) SetState(state routerState) { r.state = state }

// SetPauses wires the pause view guarding mutating entry points.
func (r *Router) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Router) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (r *Router) SetNowFunc(now func() int64) {
	if r == nil || now == nil {
		return
	}
	r.nowFn = now
}

func (r *Router) emit(event events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

// AddSupportedChain marks a target network as routable. Owner only.
func (r *Router) AddSupportedChain(caller [20]byte, network string) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	network = strings.ToLower(strings.TrimSpace(network))
	if network == "" {
		return ErrUnsupportedChain
	}
	if err := r.state.KVPut(chainKey(network), true); err != nil {
		return err
	}
	r.emit(events.ChainSupportAdded{Network: network})
	return nil
}

// RemoveSupportedChain drops a target network. Owner only. Pending transfers
// toward the network stay completable.
func (r *Router) RemoveSupportedChain(caller [20]byte, network string) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	network = strings.ToLower(strings.TrimSpace(network))
	if err := r.state.KVPut(chainKey(network), false); err != nil {
		return err
	}
	r.emit(events.ChainSupportRemoved{Network: network})
	return nil
}

func (r *Router) chainSupported(network string) (bool, error) {
	var enabled bool
	ok, err := r.state.KVGet(chainKey(network), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}

// AddOperator registers an address allowed to complete transfers. Owner only.
func (r *Router) AddOperator(caller, operator [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	if operator == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := r.state.KVPut(operatorKey(operator), true); err != nil {
		return err
	}
	r.emit(events.BridgeOperatorAdded{Operator: operator})
	return nil
}

// RemoveOperator revokes an operator. Owner only.
func (r *Router) RemoveOperator(caller, operator [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if caller != r.owner {
		return ErrUnauthorized
	}
	if err := r.state.KVPut(operatorKey(operator), false); err != nil {
		return err
	}
	r.emit(events.BridgeOperatorRemoved{Operator: operator})
	return nil
}

func (r *Router) isOperator(addr [20]byte) (bool, error) {
	if addr == r.owner {
		return true, nil
	}
	var enabled bool
	ok, err := r.state.KVGet(operatorKey(addr), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}

// InitiateCrossChainTransfer escrows amount from the sender and records a
// pending transfer with a deterministic id. All validation happens before any
// custody move.
func (r *Router) InitiateCrossChainTransfer(sender, recipient [20]byte, amount *big.Int, targetNetwork string) (*PendingTransfer, error) {
	if r == nil || r.state == nil || r.token == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(r.pauses, routerModule); err != nil {
		return nil, err
	}
	if sender == ([20]byte{}) || recipient == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Cmp(r.minTransfer) < 0 {
		return nil, ErrInvalidTransferAmount
	}
	if r.maxTransfer != nil && amount.Cmp(r.maxTransfer) > 0 {
		return nil, ErrInvalidTransferAmount
	}
	targetNetwork = strings.ToLower(strings.TrimSpace(targetNetwork))
	supported, err := r.chainSupported(targetNetwork)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, ErrUnsupportedChain
	}

	// Custody first: a rejected pull must leave the sequence untouched.
	if err := r.token.TransferFrom(r.moduleAddress, sender, r.moduleAddress, amount); err != nil {
		return nil, err
	}
	seq, err := r.nextSeq()
	if err != nil {
		return nil, err
	}
	id := transferID(sender, recipient, amount, targetNetwork, seq)
	record := &PendingTransfer{
		ID:            id,
		Sender:        sender,
		Recipient:     recipient,
		Amount:        new(big.Int).Set(amount),
		SourceNetwork: r.localNetwork,
		TargetNetwork: targetNetwork,
		CreatedAt:     r.nowFn(),
	}
	if err := r.state.KVPut(transferKey(id), record.toStored()); err != nil {
		return nil, err
	}

	metrics.Channel().TransferInitiated()
	r.emit(events.CrossChainTransferInitiated{
		ID:            id,
		Sender:        sender,
		Recipient:     recipient,
		Amount:        record.Amount,
		TargetNetwork: targetNetwork,
		CreatedAt:     record.CreatedAt,
	})
	return record.Clone(), nil
}

// CompleteCrossChainTransfer releases an escrowed transfer to its recipient.
// Operator only; the supplied parameters must match the stored record and a
// record can be completed at most once.
func (r *Router) CompleteCrossChainTransfer(caller [20]byte, id [32]byte, recipient [20]byte, amount *big.Int, sourceNetwork string) error {
	if r == nil || r.state == nil || r.token == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, routerModule); err != nil {
		return err
	}
	operator, err := r.isOperator(caller)
	if err != nil {
		return err
	}
	if !operator {
		return ErrNotBridgeOperator
	}
	record, err := r.PendingTransferByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrTransferNotFound
	}
	if record.Completed {
		metrics.Channel().ReplayRejected(routerModule)
		return ErrTransferAlreadyCompleted
	}
	sourceNetwork = strings.ToLower(strings.TrimSpace(sourceNetwork))
	if record.Recipient != recipient || record.SourceNetwork != sourceNetwork {
		return ErrTransferMismatch
	}
	if amount == nil || record.Amount.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	if err := r.token.Transfer(r.moduleAddress, recipient, amount); err != nil {
		return err
	}
	record.Completed = true
	if err := r.state.KVPut(transferKey(id), record.toStored()); err != nil {
		return err
	}

	metrics.Channel().TransferCompleted()
	r.emit(events.CrossChainTransferCompleted{
		ID:            id,
		Recipient:     recipient,
		Amount:        amount,
		SourceNetwork: sourceNetwork,
	})
	return nil
}

// PendingTransferByID returns the stored transfer record, or nil when absent.
func (r *Router) PendingTransferByID(id [32]byte) (*PendingTransfer, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	var stored storedPendingTransfer
	ok, err := r.state.KVGet(transferKey(id), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stored.toPendingTransfer(), nil
}

func (r *Router) nextSeq() (uint64, error) {
	var seq uint64
	if _, err := r.state.KVGet(transferSeqKey, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := r.state.KVPut(transferSeqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func transferID(sender, recipient [20]byte, amount *big.Int, targetNetwork string, seq uint64) [32]byte {
	var buf bytes.Buffer
	buf.Write(sender[:])
	buf.Write(recipient[:])
	buf.Write(amount.Bytes())
	buf.WriteString(targetNetwork)
	buf.Write(new(big.Int).SetUint64(seq).Bytes())
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(buf.Bytes()))
	return id
}

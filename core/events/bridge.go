package events

import (
	"encoding/hex"
	"math/big"

	"creditbridge/core/types"
)

const (
	TypeCrossChainSend              = "bridge.crossChainSend"
	TypeCrossChainReceive           = "bridge.crossChainReceive"
	TypeCrossChainTransferInitiated = "bridge.transferInitiated"
	TypeCrossChainTransferCompleted = "bridge.transferCompleted"
	TypeBridgeOperatorAdded         = "bridge.operatorAdded"
	TypeBridgeOperatorRemoved       = "bridge.operatorRemoved"
	TypeChainSupportAdded           = "bridge.chainSupported"
	TypeChainSupportRemoved         = "bridge.chainUnsupported"
	TypeFeesUpdated                 = "bridge.feesUpdated"
)

// CrossChainSend is emitted when bridge tokens are burned for delivery on a
// remote network. Net is the amount after the send fee.
type CrossChainSend struct {
	From          [20]byte
	To            [20]byte
	Net           *big.Int
	Fee           *big.Int
	TargetNetwork string
}

func (CrossChainSend) EventType() string { return TypeCrossChainSend }

func (e CrossChainSend) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainSend,
		Attributes: map[string]string{
			"from":          formatAddress(e.From),
			"to":            formatAddress(e.To),
			"net":           formatAmount(e.Net),
			"fee":           formatAmount(e.Fee),
			"targetNetwork": e.TargetNetwork,
		},
	}
}

// CrossChainReceive is emitted when a remote burn is credited locally.
type CrossChainReceive struct {
	To            [20]byte
	Net           *big.Int
	Fee           *big.Int
	SourceNetwork string
	TxHash        string
}

func (CrossChainReceive) EventType() string { return TypeCrossChainReceive }

func (e CrossChainReceive) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainReceive,
		Attributes: map[string]string{
			"to":            formatAddress(e.To),
			"net":           formatAmount(e.Net),
			"fee":           formatAmount(e.Fee),
			"sourceNetwork": e.SourceNetwork,
			"txHash":        e.TxHash,
		},
	}
}

// CrossChainTransferInitiated is emitted when the router takes custody of a
// transfer pending completion on the target network.
type CrossChainTransferInitiated struct {
	ID            [32]byte
	Sender        [20]byte
	Recipient     [20]byte
	Amount        *big.Int
	TargetNetwork string
	CreatedAt     int64
}

func (CrossChainTransferInitiated) EventType() string { return TypeCrossChainTransferInitiated }

func (e CrossChainTransferInitiated) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainTransferInitiated,
		Attributes: map[string]string{
			"id":            hex.EncodeToString(e.ID[:]),
			"sender":        formatAddress(e.Sender),
			"recipient":     formatAddress(e.Recipient),
			"amount":        formatAmount(e.Amount),
			"targetNetwork": e.TargetNetwork,
			"createdAt":     intToString(e.CreatedAt),
		},
	}
}

// CrossChainTransferCompleted is emitted when a bridge operator finalises a
// pending transfer.
type CrossChainTransferCompleted struct {
	ID            [32]byte
	Recipient     [20]byte
	Amount        *big.Int
	SourceNetwork string
}

func (CrossChainTransferCompleted) EventType() string { return TypeCrossChainTransferCompleted }

func (e CrossChainTransferCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeCrossChainTransferCompleted,
		Attributes: map[string]string{
			"id":            hex.EncodeToString(e.ID[:]),
			"recipient":     formatAddress(e.Recipient),
			"amount":        formatAmount(e.Amount),
			"sourceNetwork": e.SourceNetwork,
		},
	}
}

// BridgeOperatorAdded is emitted when the owner registers a new operator.
type BridgeOperatorAdded struct {
	Operator [20]byte
}

func (BridgeOperatorAdded) EventType() string { return TypeBridgeOperatorAdded }

func (e BridgeOperatorAdded) Event() *types.Event {
	return &types.Event{
		Type:       TypeBridgeOperatorAdded,
		Attributes: map[string]string{"operator": formatAddress(e.Operator)},
	}
}

// BridgeOperatorRemoved is emitted when the owner revokes an operator.
type BridgeOperatorRemoved struct {
	Operator [20]byte
}

func (BridgeOperatorRemoved) EventType() string { return TypeBridgeOperatorRemoved }

func (e BridgeOperatorRemoved) Event() *types.Event {
	return &types.Event{
		Type:       TypeBridgeOperatorRemoved,
		Attributes: map[string]string{"operator": formatAddress(e.Operator)},
	}
}

// ChainSupportAdded is emitted when a target network becomes routable.
type ChainSupportAdded struct {
	Network string
}

func (ChainSupportAdded) EventType() string { return TypeChainSupportAdded }

func (e ChainSupportAdded) Event() *types.Event {
	return &types.Event{
		Type:       TypeChainSupportAdded,
		Attributes: map[string]string{"network": e.Network},
	}
}

// ChainSupportRemoved is emitted when a target network is withdrawn.
type ChainSupportRemoved struct {
	Network string
}

func (ChainSupportRemoved) EventType() string { return TypeChainSupportRemoved }

func (e ChainSupportRemoved) Event() *types.Event {
	return &types.Event{
		Type:       TypeChainSupportRemoved,
		Attributes: map[string]string{"network": e.Network},
	}
}

// FeesUpdated is emitted when the owner adjusts bridge fees.
type FeesUpdated struct {
	SendFeeBps    uint64
	ReceiveFeeBps uint64
}

func (FeesUpdated) EventType() string { return TypeFeesUpdated }

func (e FeesUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeesUpdated,
		Attributes: map[string]string{
			"sendFeeBps":    uintToString(e.SendFeeBps),
			"receiveFeeBps": uintToString(e.ReceiveFeeBps),
		},
	}
}

package debt

import (
	"fmt"
	"time"

	"creditbridge/core/events"
	"creditbridge/native/messaging"
	"creditbridge/observability/metrics"
)

// InboundHandler applies relayed mint instructions from remote swap engines.
// Authorization is the source-network + sender allowlist; replay protection is
// the processed-message set keyed by message id.
type InboundHandler struct {
	engine *Engine
}

// NewInboundHandler wires an engine into a messaging-facing handler.
func NewInboundHandler(engine *Engine) *InboundHandler {
	return &InboundHandler{engine: engine}
}

// Deliver implements messaging.Handler.
func (h *InboundHandler) Deliver(msg *messaging.Message) error {
	if h == nil || h.engine == nil || h.engine.state == nil {
		return errNilState
	}
	if msg == nil {
		return fmt.Errorf("debt engine: nil message")
	}
	e := h.engine
	if err := e.policy.CheckInbound(msg.SourceNetwork, msg.Sender); err != nil {
		return ErrUnauthorizedMint
	}
	processed, err := e.state.KVHas(processedKey(msg.ID))
	if err != nil {
		return err
	}
	if processed {
		metrics.Channel().ReplayRejected(moduleName)
		return ErrMessageAlreadyProcessed
	}
	instruction, err := messaging.DecodeMintInstruction(msg.Payload)
	if err != nil {
		return err
	}
	if err := e.mint(instruction.User, instruction.Amount, msg.ID); err != nil {
		return err
	}
	if err := e.state.KVPut(processedKey(msg.ID), true); err != nil {
		return err
	}
	// The destination records the swap as completed under the same message id
	// the source keyed its pending record by.
	record := &PendingSwap{
		MessageID:     msg.ID,
		User:          instruction.User,
		Amount:        instruction.Amount,
		SourceNetwork: msg.SourceNetwork,
		DestNetwork:   msg.DestNetwork,
		CreatedAt:     time.Now().Unix(),
		Completed:     true,
	}
	if e.nowFn != nil {
		record.CreatedAt = e.nowFn()
	}
	if err := e.state.KVPut(pendingKey(msg.ID), record.toStored()); err != nil {
		return err
	}

	metrics.Channel().MessageProcessed(moduleName)
	metrics.Channel().SwapCompleted()
	e.emit(events.CrossChainSwapCompleted{
		User:          instruction.User,
		Amount:        instruction.Amount,
		SourceNetwork: msg.SourceNetwork,
		MessageID:     msg.ID,
	})
	return nil
}

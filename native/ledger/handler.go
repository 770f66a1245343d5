package ledger

import (
	"errors"
	"fmt"

	"creditbridge/native/messaging"
	"creditbridge/observability/metrics"
)

// ErrNoticeAlreadyProcessed marks redelivered deposit notices. The observed
// relay design left this path unguarded; the handler keeps its own processed
// set so transport-level retries stay safe.
var ErrNoticeAlreadyProcessed = errors.New("ledger engine: deposit notice already processed")

// InboundHandler adapts the ledger engine to the cross-network message
// channel. Every inbound notice is checked against the ledger's network
// policy and deduplicated by message id before ProcessDeposit runs.
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
		return fmt.Errorf("ledger engine: nil message")
	}
	if err := h.engine.policy.CheckInbound(msg.SourceNetwork, msg.Sender); err != nil {
		return err
	}
	processed, err := h.engine.state.KVHas(processedKey(msg.ID))
	if err != nil {
		return err
	}
	if processed {
		metrics.Channel().ReplayRejected(moduleName)
		return ErrNoticeAlreadyProcessed
	}
	notice, err := messaging.DecodeDepositNotice(msg.Payload)
	if err != nil {
		return err
	}
	if _, err := h.engine.ProcessDeposit(notice.User, notice.Asset, notice.Amount, notice.SourceNetwork); err != nil {
		return err
	}
	// Marked only after the deposit commits: a failed notice stays
	// redeliverable.
	if err := h.engine.state.KVPut(processedKey(msg.ID), true); err != nil {
		return err
	}
	metrics.Channel().MessageProcessed(moduleName)
	return nil
}

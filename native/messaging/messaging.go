package messaging

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Message is the unit delivered across networks. The transport guarantees
// at-least-once delivery and an authenticated sender; ordering and single
// delivery are not guaranteed, so receiving components must dedupe by ID.
type Message struct {
	ID            string
	SourceNetwork string
	DestNetwork   string
	Sender        [20]byte
	Payload       []byte
}

// Sender pushes a payload toward a remote component and returns the
// correlation id assigned to the outbound message.
type Sender interface {
	Send(destNetwork string, payload []byte) (string, error)
}

// Handler consumes inbound messages one at a time. Implementations must be
// idempotent per message id; the transport may redeliver.
type Handler interface {
	Deliver(msg *Message) error
}

// ErrNoRoute is returned when a message targets a network/component pair with
// no registered handler and queuing is disabled.
var ErrNoRoute = errors.New("messaging: no route to destination")

type route struct {
	network   string
	component string
}

// Bus is an in-memory message channel connecting component instances across
// simulated networks. It delivers synchronously when a handler is registered
// and queues otherwise. Tests can raise the delivery count to exercise
// duplicate-delivery handling.
type queued struct {
	msg   *Message
	route route
}

type Bus struct {
	mu         sync.Mutex
	handlers   map[route]Handler
	pending    []queued
	deliveries int
}

// NewBus constructs an empty bus that delivers each message exactly once.
func NewBus() *Bus {
	return &Bus{handlers: make(map[route]Handler), deliveries: 1}
}

// SetDeliveries configures how many times each message is handed to the
// destination handler. Values above one simulate at-least-once redelivery.
func (b *Bus) SetDeliveries(n int) {
	if b == nil || n < 1 {
		return
	}
	b.mu.Lock()
	b.deliveries = n
	b.mu.Unlock()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register binds a handler for the given network and component name. Messages
// queued while the route was unbound are delivered immediately.
func (b *Bus) Register(network, component string, h Handler) {
	if b == nil || h == nil {
		return
	}
	r := route{normalize(network), normalize(component)}
	b.mu.Lock()
	b.handlers[r] = h
	var flush []*Message
	remaining := b.pending[:0]
	for _, q := range b.pending {
		if q.route == r {
			flush = append(flush, q.msg)
			continue
		}
		remaining = append(remaining, q)
	}
	b.pending = remaining
	deliveries := b.deliveries
	b.mu.Unlock()
	for _, msg := range flush {
		for i := 0; i < deliveries; i++ {
			_ = h.Deliver(msg)
		}
	}
}

// Endpoint returns a Sender bound to the local network, a sender identity and
// the destination component name. Correlation ids are assigned per send.
func (b *Bus) Endpoint(sourceNetwork string, sender [20]byte, destComponent string) Sender {
	return &endpoint{
		bus:       b,
		source:    normalize(sourceNetwork),
		sender:    sender,
		component: normalize(destComponent),
	}
}

type endpoint struct {
	bus       *Bus
	source    string
	sender    [20]byte
	component string
}

func (e *endpoint) Send(destNetwork string, payload []byte) (string, error) {
	if e == nil || e.bus == nil {
		return "", ErrNoRoute
	}
	msg := &Message{
		ID:            uuid.NewString(),
		SourceNetwork: e.source,
		DestNetwork:   normalize(destNetwork),
		Sender:        e.sender,
		Payload:       append([]byte(nil), payload...),
	}
	return msg.ID, e.bus.dispatch(msg, e.component)
}

func (b *Bus) dispatch(msg *Message, component string) error {
	r := route{msg.DestNetwork, component}
	b.mu.Lock()
	h, ok := b.handlers[r]
	deliveries := b.deliveries
	if !ok {
		b.pending = append(b.pending, queued{msg: msg, route: r})
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	// Delivery happens on the far side of the network boundary: the sender has
	// already committed locally and never observes handler errors. Rejected
	// redeliveries are the receiver's replay guard doing its job.
	for i := 0; i < deliveries; i++ {
		_ = h.Deliver(msg)
	}
	return nil
}

package stream

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Handlers receives decoded events. Dispatch is synchronous with respect to
// arrival order, but a handler may kick off asynchronous work, so handlers
// must be reentrant-safe: a second event can arrive while the first
// handler's fetch is still in flight.
type Handlers struct {
	OnOrderStatus  func(OrderStatusEvent)
	OnChatMessage  func(ChatMessageEvent)
	OnSessionEnded func(SessionEndedEvent)
	OnConnected    func(ConnectedEvent)
	OnChatRead     func(ChatReadEvent)
}

type Dispatcher struct {
	handlers Handlers
	log      *logrus.Logger
}

func NewDispatcher(handlers Handlers, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{handlers: handlers, log: log}
}

// Dispatch decodes one payload and routes it to exactly one handler.
// Malformed payloads are logged and dropped; unknown types are a logged
// no-op. Neither may ever take the connection down.
func (d *Dispatcher) Dispatch(payload []byte) {
	ev, err := Decode(payload)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			d.log.Printf("stream: ignoring event: %v", err)
		} else {
			d.log.Printf("stream: dropping payload: %v", err)
		}
		return
	}

	switch ev := ev.(type) {
	case OrderStatusEvent:
		if d.handlers.OnOrderStatus != nil {
			d.handlers.OnOrderStatus(ev)
		}
	case ChatMessageEvent:
		if d.handlers.OnChatMessage != nil {
			d.handlers.OnChatMessage(ev)
		}
	case SessionEndedEvent:
		if d.handlers.OnSessionEnded != nil {
			d.handlers.OnSessionEnded(ev)
		}
	case ConnectedEvent:
		if d.handlers.OnConnected != nil {
			d.handlers.OnConnected(ev)
		}
	case ChatReadEvent:
		if d.handlers.OnChatRead != nil {
			d.handlers.OnChatRead(ev)
		}
	}
}

package payment

import (
	"sync"

	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/models/enum"
)

// Event is a UI-facing notification from a checkout session. Dispatch is
// synchronous and in-order; handlers must not block.
type Event struct {
	Type      enum.EventType
	SessionID string
	Step      enum.CheckoutStep
	Message   string
	Fields    map[string]string
}

type EventHandler func(Event)

// EventManager fans session events out to registered handlers, keyed by event
// type. A handler registered for the empty type receives every event.
type EventManager struct {
	mu       sync.RWMutex
	handlers map[enum.EventType][]EventHandler
	logger   *zap.Logger
}

func NewEventManager(logger *zap.Logger) *EventManager {
	return &EventManager{
		handlers: make(map[enum.EventType][]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) Subscribe(eventType enum.EventType, handler EventHandler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.handlers[eventType] = append(em.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (em *EventManager) SubscribeAll(handler EventHandler) {
	em.Subscribe("", handler)
}

func (em *EventManager) publish(event Event) {
	em.mu.RLock()
	handlers := append([]EventHandler(nil), em.handlers[event.Type]...)
	handlers = append(handlers, em.handlers[""]...)
	em.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

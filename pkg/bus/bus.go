// Package bus carries progress events from long running operations to
// whoever renders them. A bus with no subscribers drops events.
package bus

import (
	eventbus "github.com/asaskevich/EventBus"
)

type Subscriber interface {
	Subscribe(topic string, handler any) error
	Unsubscribe(topic string, handler any) error
}

type Publisher interface {
	Publish(topic string, args ...any)
}

type Bus interface {
	Subscriber
	Publisher
}

func New() *EventBus {
	return &EventBus{bus: eventbus.New()}
}

// EventBus delivers events synchronously, in publish order, on the
// publisher's goroutine.
type EventBus struct {
	bus eventbus.Bus
}

var _ Bus = (*EventBus)(nil)

func (e *EventBus) Publish(topic string, args ...any) {
	e.bus.Publish(topic, args...)
}

func (e *EventBus) Subscribe(topic string, handler any) error {
	return e.bus.Subscribe(topic, handler)
}

func (e *EventBus) Unsubscribe(topic string, handler any) error {
	return e.bus.Unsubscribe(topic, handler)
}

// NoopBus drops everything.
type NoopBus struct{}

func (NoopBus) Publish(topic string, args ...any)           {}
func (NoopBus) Subscribe(topic string, handler any) error   { return nil }
func (NoopBus) Unsubscribe(topic string, handler any) error { return nil }

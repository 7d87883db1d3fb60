package memstore

import (
	"context"
	"sync"

	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

// Publisher records published events
type Publisher struct {
	mu     sync.Mutex
	events []ports.PaymentEvent
	Err    error
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish implements ports.EventPublisher
func (p *Publisher) Publish(_ context.Context, event ports.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

// Close implements ports.EventPublisher
func (p *Publisher) Close() error { return nil }

// Events returns the recorded events in publish order
func (p *Publisher) Events() []ports.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.PaymentEvent(nil), p.events...)
}

// Types returns the recorded event types in publish order
func (p *Publisher) Types() []ports.PaymentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.PaymentEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

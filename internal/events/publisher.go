package events

import (
	"context"
	"errors"

	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

// Publisher delivers an event to one sink
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Multi fans an event out to every sink. A failing sink does not stop the
// others; failures are logged and joined.
type Multi struct {
	sinks []Publisher
	log   *logger.Logger
}

func NewMulti(log *logger.Logger, sinks ...Publisher) *Multi {
	return &Multi{sinks: sinks, log: log}
}

// Add registers another sink
func (m *Multi) Add(p Publisher) {
	m.sinks = append(m.sinks, p)
}

func (m *Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, e); err != nil {
			m.log.Error("EVENTS", "publish failed", "type", e.Type, "event_id", e.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

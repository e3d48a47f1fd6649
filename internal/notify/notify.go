// Package notify delivers restock events: the Discord webhook alert plus optional
// broker, pub/sub and journal sinks.
package notify

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// Notifier delivers one restock event. A nil error means delivered.
type Notifier interface {
	Send(ctx context.Context, ev stock.Event) error
}

// Sink is a secondary destination. Its failures are logged, never returned.
type Sink interface {
	Notifier
	Name() string
	Close() error
}

// Logf matches logging.Printf.
type Logf func(format string, args ...interface{})

// Nop accepts every event.
type Nop struct{}

func (Nop) Send(context.Context, stock.Event) error { return nil }

// Multi sends to Primary and every sink at once. Only Primary's error is returned.
type Multi struct {
	Primary Notifier
	Sinks   []Sink
	// SinkTimeout bounds each sink's Send on top of the caller's deadline. Zero means no extra bound.
	SinkTimeout time.Duration
	Logf        Logf
}

func (m *Multi) Send(ctx context.Context, ev stock.Event) error {
	var (
		wg         conc.WaitGroup
		primaryErr error
		sinkErrs   = make([]error, len(m.Sinks))
	)
	if m.Primary != nil {
		wg.Go(func() { primaryErr = m.Primary.Send(ctx, ev) })
	}
	for i, s := range m.Sinks {
		wg.Go(func() {
			sctx, cancel := m.sinkContext(ctx)
			defer cancel()
			sinkErrs[i] = s.Send(sctx, ev)
		})
	}
	wg.Wait()

	for i, serr := range sinkErrs {
		if serr != nil && m.Logf != nil {
			m.Logf("Sink %s failed for %s at %s: %v", m.Sinks[i].Name(), ev.Product, ev.RetailerName, serr)
		}
	}
	return primaryErr
}

func (m *Multi) sinkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.SinkTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.SinkTimeout)
}

// Close closes every sink and returns the first error.
func (m *Multi) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Message is the wire form of an event on the broker, pub/sub and journal sinks.
type Message struct {
	ID           string    `json:"id"`
	Product      string    `json:"product"`
	Retailer     string    `json:"retailer"`
	RetailerName string    `json:"retailer_name"`
	Price        string    `json:"price,omitempty"`
	URL          string    `json:"url"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NewMessage converts an event.
func NewMessage(ev stock.Event) Message {
	m := Message{
		ID:           ev.ID,
		Product:      ev.Product,
		Retailer:     string(ev.Retailer),
		RetailerName: ev.RetailerName,
		URL:          ev.URL,
		DetectedAt:   ev.DetectedAt.UTC(),
	}
	if ev.Price.Valid {
		m.Price = ev.Price.Decimal.StringFixed(2)
	}
	return m
}

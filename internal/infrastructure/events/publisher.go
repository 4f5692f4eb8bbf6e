package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// EventType identifies a booking lifecycle event.
type EventType string

const (
	BookingConfirmed EventType = "booking.confirmed"
	BookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is the payload delivered to subscribers.
type BookingEvent struct {
	Type       EventType                 `json:"type"`
	Booking    *schedule.BookingInterval `json:"booking"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// Handler consumes booking events. Handlers run on the publisher's worker
// goroutine and must not block for long.
type Handler func(ctx context.Context, event BookingEvent)

// Publisher delivers booking lifecycle events asynchronously. Publishing
// never blocks the booking path: when the buffer is full the event is
// dropped and counted, not queued.
type Publisher struct {
	mu       sync.RWMutex
	handlers []Handler
	queue    chan BookingEvent
	done     chan struct{}
	logger   *zap.Logger

	dropped int64
}

// NewPublisher starts a publisher with the given buffer size.
func NewPublisher(bufferSize int, logger *zap.Logger) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		queue:  make(chan BookingEvent, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.deliverLoop()
	return p
}

// Subscribe registers a handler for all booking events.
func (p *Publisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// PublishBookingConfirmed emits a confirmation event.
func (p *Publisher) PublishBookingConfirmed(interval *schedule.BookingInterval) {
	p.publish(BookingEvent{Type: BookingConfirmed, Booking: interval, OccurredAt: time.Now()})
}

// PublishBookingCancelled emits a cancellation event.
func (p *Publisher) PublishBookingCancelled(interval *schedule.BookingInterval) {
	p.publish(BookingEvent{Type: BookingCancelled, Booking: interval, OccurredAt: time.Now()})
}

func (p *Publisher) publish(event BookingEvent) {
	select {
	case p.queue <- event:
	default:
		p.mu.Lock()
		p.dropped++
		dropped := p.dropped
		p.mu.Unlock()
		p.logger.Warn("event buffer full, dropping event",
			zap.String("type", string(event.Type)),
			zap.Int64("dropped_total", dropped))
	}
}

func (p *Publisher) deliverLoop() {
	ctx := context.Background()
	for {
		select {
		case event := <-p.queue:
			p.mu.RLock()
			handlers := p.handlers
			p.mu.RUnlock()
			for _, h := range handlers {
				h(ctx, event)
			}
		case <-p.done:
			return
		}
	}
}

// Close stops delivery. Events still queued are discarded.
func (p *Publisher) Close() {
	close(p.done)
}

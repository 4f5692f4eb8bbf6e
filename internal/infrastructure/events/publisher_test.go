package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/events"
)

func testInterval(t *testing.T) *schedule.BookingInterval {
	t.Helper()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	b, err := schedule.NewBookingInterval(uuid.New(), uuid.New(),
		start, start.Add(2*time.Hour), schedule.Location{}, schedule.TierNormal)
	require.NoError(t, err)
	return b
}

func TestPublisher_DeliversToSubscribers(t *testing.T) {
	p := events.NewPublisher(16, nil)
	defer p.Close()

	var mu sync.Mutex
	var received []events.BookingEvent
	delivered := make(chan struct{}, 4)
	p.Subscribe(func(ctx context.Context, e events.BookingEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		delivered <- struct{}{}
	})

	b := testInterval(t)
	p.PublishBookingConfirmed(b)
	p.PublishBookingCancelled(b)

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, events.BookingConfirmed, received[0].Type)
	assert.Equal(t, events.BookingCancelled, received[1].Type)
	assert.Equal(t, b.ID, received[0].Booking.ID)
	assert.False(t, received[0].OccurredAt.IsZero())
}

func TestPublisher_MultipleSubscribers(t *testing.T) {
	p := events.NewPublisher(16, nil)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		p.Subscribe(func(ctx context.Context, e events.BookingEvent) {
			wg.Done()
		})
	}

	p.PublishBookingConfirmed(testInterval(t))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all subscribers received the event")
	}
}

func TestPublisher_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	p := events.NewPublisher(1, nil)
	defer p.Close()

	// A slow handler wedges the delivery loop so the buffer fills.
	block := make(chan struct{})
	p.Subscribe(func(ctx context.Context, e events.BookingEvent) {
		<-block
	})

	b := testInterval(t)
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.PublishBookingConfirmed(b)
		}
		close(finished)
	}()

	select {
	case <-finished:
		// Publishing never blocked.
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}
	close(block)
}

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
)

func startedBroker(t *testing.T, opts ...Option) *Broker {
	t.Helper()

	b := NewBroker(logger.NewNop(), opts...)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroker_PublishReachesSubscriber(t *testing.T) {
	b := startedBroker(t)

	ch, cleanup := b.Subscribe(context.Background())
	defer cleanup()

	l := &domain.Listing{ID: "l1", Platform: domain.PlatformEBay, Title: "thing"}
	require.NoError(t, b.Publish(context.Background(), NewListingFoundEvent(l)))

	event := waitForEvent(t, ch)
	assert.Equal(t, TypeListingFound, event.Type)
}

func TestBroker_FanOut(t *testing.T) {
	b := startedBroker(t)

	ch1, cleanup1 := b.Subscribe(context.Background())
	defer cleanup1()
	ch2, cleanup2 := b.Subscribe(context.Background())
	defer cleanup2()

	require.NoError(t, b.Publish(context.Background(), NewPingEvent()))

	assert.Equal(t, TypePing, waitForEvent(t, ch1).Type)
	assert.Equal(t, TypePing, waitForEvent(t, ch2).Type)
}

func TestBroker_Heartbeat(t *testing.T) {
	b := startedBroker(t, WithHeartbeatInterval(20*time.Millisecond))

	ch, cleanup := b.Subscribe(context.Background())
	defer cleanup()

	event := waitForEvent(t, ch)
	assert.Equal(t, TypePing, event.Type)
}

func TestBroker_SlowSubscriberIsEvicted(t *testing.T) {
	b := startedBroker(t, WithClientBufferSize(1))

	ch, cleanup := b.Subscribe(context.Background())
	defer cleanup()
	require.Equal(t, 1, b.ClientCount())

	// Never drain ch; the second publish overflows the buffer of one and
	// the third observes a dead subscriber.
	for i := 0; i < 3; i++ {
		_ = b.Publish(context.Background(), NewPingEvent())
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, b.ClientCount())
	_ = ch
}

func TestBroker_CleanupUnsubscribes(t *testing.T) {
	b := startedBroker(t)

	_, cleanup := b.Subscribe(context.Background())
	require.Equal(t, 1, b.ClientCount())

	cleanup()
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroker_SubscriberContextCancelUnsubscribes(t *testing.T) {
	b := startedBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	_, cleanup := b.Subscribe(ctx)
	defer cleanup()
	require.Equal(t, 1, b.ClientCount())

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroker_StopClosesSubscribers(t *testing.T) {
	b := NewBroker(logger.NewNop())
	require.NoError(t, b.Start(context.Background()))

	ch, cleanup := b.Subscribe(context.Background())
	defer cleanup()

	require.NoError(t, b.Stop())

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after Stop")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Stop")
	}
}

func TestClient_SendDuringCloseDoesNotPanic(t *testing.T) {
	c := newClient(context.Background(), 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.send(NewPingEvent())
			}
		}()
	}
	c.close()
	wg.Wait()

	assert.False(t, c.send(NewPingEvent()), "send after close must report failure")
}

func TestBroker_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	b := startedBroker(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = b.Publish(context.Background(), NewPingEvent())
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

package realtime_test

import (
	"testing"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/infra/realtime"
)

func TestHub_PublishReachesSubscriber(t *testing.T) {
	hub := realtime.NewHub()

	ch, unsubscribe := hub.Subscribe("spending")
	defer unsubscribe()

	hub.Publish(domain.RealtimeEvent{
		Collection: "spending",
		Events:     []string{"collections.spending.documents.doc-1.create"},
	})

	select {
	case ev := <-ch:
		if ev.Collection != "spending" {
			t.Errorf("expected collection 'spending', got '%s'", ev.Collection)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestHub_OtherCollectionNotDelivered(t *testing.T) {
	hub := realtime.NewHub()

	ch, unsubscribe := hub.Subscribe("history")
	defer unsubscribe()

	hub.Publish(domain.RealtimeEvent{
		Collection: "spending",
		Events:     []string{"collections.spending.documents.doc-1.create"},
	})

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got one for %s", ev.Collection)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_MultiCollectionSubscription(t *testing.T) {
	hub := realtime.NewHub()

	ch, unsubscribe := hub.Subscribe("finance_categories", "spending")
	defer unsubscribe()

	hub.Publish(domain.RealtimeEvent{Collection: "finance_categories"})
	hub.Publish(domain.RealtimeEvent{Collection: "spending"})

	received := 0
	timeout := time.After(time.Second)
	for received < 2 {
		select {
		case <-ch:
			received++
		case <-timeout:
			t.Fatalf("expected 2 events, got %d", received)
		}
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := realtime.NewHub()

	ch, unsubscribe := hub.Subscribe("mood")
	unsubscribe()

	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(domain.RealtimeEvent{Collection: "mood"})
}

func TestHub_SlowConsumerDoesNotBlockPublisher(t *testing.T) {
	hub := realtime.NewHub()

	_, unsubscribe := hub.Subscribe("history")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		// More events than the channel buffer holds; nobody reads.
		for i := 0; i < 100; i++ {
			hub.Publish(domain.RealtimeEvent{Collection: "history"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow consumer")
	}
}

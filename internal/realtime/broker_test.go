package realtime

import (
	"context"
	"testing"
	"time"
)

func TestLocalBroker_PublishSubscribe(t *testing.T) {
	broker := NewLocalBroker()
	defer broker.Close()

	events, unsubscribe, err := broker.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer unsubscribe()

	sent := PostEvent{ID: "post-1", Content: "hello", IsAnonymous: true}
	if err := broker.Publish(context.Background(), sent); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	select {
	case got := <-events:
		if got.ID != sent.ID || got.Content != sent.Content {
			t.Errorf("received %+v, want %+v", got, sent)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestLocalBroker_Unsubscribe(t *testing.T) {
	broker := NewLocalBroker()
	defer broker.Close()

	events, unsubscribe, err := broker.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	unsubscribe()

	// Channel must be closed after unsubscribe
	if _, ok := <-events; ok {
		t.Error("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic
	if err := broker.Publish(context.Background(), PostEvent{ID: "post-2"}); err != nil {
		t.Errorf("Publish() after unsubscribe error: %v", err)
	}

	// Unsubscribing twice must be safe
	unsubscribe()
}

func TestLocalBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewLocalBroker()
	defer broker.Close()

	_, unsubscribe, err := broker.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer unsubscribe()

	// Fill well past the subscriber buffer without draining
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*4; i++ {
			broker.Publish(context.Background(), PostEvent{ID: "post"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() blocked on a slow subscriber")
	}
}

func TestLocalBroker_Close(t *testing.T) {
	broker := NewLocalBroker()

	events, _, err := broker.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	if err := broker.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, ok := <-events; ok {
		t.Error("expected closed channel after broker close")
	}

	// Closing twice must be safe
	if err := broker.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

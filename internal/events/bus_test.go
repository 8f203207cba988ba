package events

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishReachesSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBus()
	ch, cancel := b.Subscribe("s1")
	defer cancel()

	b.Publish("s1", TypeReplyGenerated, "")

	ev := recv(t, ch)
	if ev.SessionID != "s1" || ev.Type != TypeReplyGenerated {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected a timestamp on the event")
	}
}

func TestPublishIsScopedToSession(t *testing.T) {
	t.Parallel()

	b := NewBus()
	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s2")
	defer cancel2()

	b.Publish("s1", TypeAudioReady, "")

	recv(t, ch1)
	select {
	case ev := <-ch2:
		t.Errorf("event for s1 leaked to s2 subscriber: %+v", ev)
	default:
	}
}

func TestPublishFansOut(t *testing.T) {
	t.Parallel()

	b := NewBus()
	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s1")
	defer cancel2()

	b.Publish("s1", TypeVideoReady, "https://v.example.com/1.mp4")

	if ev := recv(t, ch1); ev.Detail != "https://v.example.com/1.mp4" {
		t.Errorf("unexpected detail %q", ev.Detail)
	}
	recv(t, ch2)
}

func TestCancelClosesChannelAndStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBus()
	ch, cancel := b.Subscribe("s1")

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}

	// Publishing after cancel must not panic on the closed channel.
	b.Publish("s1", TypeMessageReceived, "")

	// Cancel is idempotent.
	cancel()
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	b := NewBus()
	ch, cancel := b.Subscribe("s1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish("s1", TypeMessageReceived, "")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// The buffer holds at most subscriberBuffer events; the rest were dropped.
	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count != subscriberBuffer {
				t.Errorf("expected %d buffered events, got %d", subscriberBuffer, count)
			}
			return
		}
	}
}

package bus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(PushNotification)
	defer cancel()

	b.Publish(Event{Kind: PushNotification})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestKindsAreIsolated(t *testing.T) {
	b := New()
	pushCh, cancelPush := b.Subscribe(PushNotification)
	defer cancelPush()
	lockCh, cancelLock := b.Subscribe(VaultLockRequested)
	defer cancelLock()

	b.Publish(Event{Kind: VaultLockRequested, Reason: "owner grant revoked"})

	select {
	case ev := <-lockCh:
		if ev.Reason != "owner grant revoked" {
			t.Errorf("unexpected payload: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("lock subscriber did not receive event")
	}

	select {
	case <-pushCh:
		t.Fatal("push subscriber must not see vault-lock events")
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(ActionComplete)
	cancel()

	// Channel is closed on cancel.
	if _, ok := <-ch; ok {
		t.Error("cancelled subscription channel should be closed")
	}

	// Publishing after cancel must not panic.
	b.Publish(Event{Kind: ActionComplete})
}

// A publish racing a subscriber's teardown must never send on the closed
// channel. This happens at shutdown: the dispatcher publishes
// ActionComplete while the engine cancels its subscriptions.
func TestConcurrentPublishAndCancel(t *testing.T) {
	b := New()
	for i := 0; i < 5000; i++ {
		_, cancel := b.Subscribe(ActionComplete)

		done := make(chan struct{})
		go func() {
			b.Publish(Event{Kind: ActionComplete, Action: "approve"})
			close(done)
		}()
		cancel()
		<-done
	}
}

func TestFanOut(t *testing.T) {
	b := New()
	ch1, cancel1 := b.Subscribe(ActionComplete)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(ActionComplete)
	defer cancel2()

	b.Publish(Event{Kind: ActionComplete, Action: "approve", RequestID: "r1"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.RequestID != "r1" {
				t.Errorf("subscriber %d: unexpected event %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
	}
}

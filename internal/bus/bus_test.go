package bus

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New(nil)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.PublishInstallLog("sdwebui", "starting up")

	select {
	case evt := <-ch:
		if evt.Kind != KindInstallLog {
			t.Fatalf("unexpected kind: %s", evt.Kind)
		}
		payload, ok := evt.Payload.(InstallLog)
		if !ok || payload.AppName != "sdwebui" {
			t.Fatalf("unexpected payload: %+v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	ch, unsub := b.Subscribe()
	unsub()

	b.PublishInstallLog("sdwebui", "should not be delivered")

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected channel to be closed immediately")
	}
}

func TestPublishDropsForFullReceiver(t *testing.T) {
	b := New(nil)
	_, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 300; i++ {
		b.PublishInstallLog("sdwebui", "line")
	}
	// No assertion beyond "does not deadlock or panic" — events for a slow
	// receiver are dropped, not blocked on.
}

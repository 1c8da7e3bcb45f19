package events

import (
	"testing"
	"time"
)

func waitForEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		var zero T
		return zero
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ModeChangedEvent, 1)

	unsub := bus.Subscribe(func(e ModeChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(ModeChangedEvent{StreamID: "cam1", Mode: "live"})

	e := waitForEvent(t, received)
	if e.StreamID != "cam1" || e.Mode != "live" {
		t.Errorf("got %+v", e)
	}
}

func TestSubscribersAreTypeScoped(t *testing.T) {
	bus := New()
	modeEvents := make(chan ModeChangedEvent, 1)
	exitEvents := make(chan ProcessExitEvent, 1)

	defer bus.Subscribe(func(e ModeChangedEvent) { modeEvents <- e })()
	defer bus.Subscribe(func(e ProcessExitEvent) { exitEvents <- e })()

	bus.Publish(ProcessExitEvent{StreamID: "cam1", ExitCode: 1})

	e := waitForEvent(t, exitEvents)
	if e.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", e.ExitCode)
	}
	select {
	case e := <-modeEvents:
		t.Errorf("mode subscriber received %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	received := make(chan ConfigReloadedEvent, 1)

	unsub := bus.Subscribe(func(e ConfigReloadedEvent) { received <- e })
	unsub()

	bus.Publish(ConfigReloadedEvent{Path: "cameras.toml"})

	select {
	case e := <-received:
		t.Errorf("received %+v after unsubscribe", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeToChannelDropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[ModeChangedEvent](bus, ch)
	defer unsub()

	// Publishing past capacity must not block the dispatcher.
	for i := 0; i < 10; i++ {
		bus.Publish(ModeChangedEvent{StreamID: "cam1"})
	}

	waitForEvent(t, ch)
}

package driver

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBusOnReceivesMatchingType(t *testing.T) {
	b := NewBus(testLogger())
	var received Event

	b.On(EventDriverState, func(e Event) { received = e })
	b.Emit(Event{Type: EventDriverState, Data: "ready"})

	if received.Data != "ready" {
		t.Errorf("data = %v, want ready", received.Data)
	}
}

func TestBusOnIgnoresOtherTypes(t *testing.T) {
	b := NewBus(testLogger())
	called := false

	b.On(EventDriverState, func(Event) { called = true })
	b.Emit(Event{Type: EventCapability})

	if called {
		t.Error("handler called for wrong event type")
	}
}

func TestBusOnAll(t *testing.T) {
	b := NewBus(testLogger())
	var count atomic.Int32

	b.OnAll(func(Event) { count.Add(1) })

	b.Emit(Event{Type: EventDriverState})
	b.Emit(Event{Type: EventCapability})
	b.Emit(Event{Type: EventConfigApplied})

	if count.Load() != 3 {
		t.Errorf("handler called %d times, want 3", count.Load())
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus(testLogger())
	var count atomic.Int32

	unsub := b.On(EventCapability, func(Event) { count.Add(1) })

	b.Emit(Event{Type: EventCapability})
	unsub()
	b.Emit(Event{Type: EventCapability})

	if count.Load() != 1 {
		t.Errorf("handler called %d times, want 1", count.Load())
	}
}

func TestBusPanicRecovery(t *testing.T) {
	b := NewBus(testLogger())
	var called atomic.Int32

	b.OnAll(func(Event) {
		called.Add(1)
		panic("boom")
	})
	b.OnAll(func(Event) { called.Add(1) })

	b.Emit(Event{Type: EventCapability})

	if called.Load() != 2 {
		t.Errorf("handlers called %d times, want 2 despite panic", called.Load())
	}
}

func TestBusConcurrentEmit(t *testing.T) {
	b := NewBus(testLogger())
	var count atomic.Int32

	b.OnAll(func(Event) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Emit(Event{Type: EventCapability})
		}()
	}
	wg.Wait()

	if count.Load() != 100 {
		t.Errorf("got %d, want 100", count.Load())
	}
}

package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/svcflow/servicedesk/internal/domain/event"
)

func TestDispatcher_Dispatch(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var got []*event.Event
	d.Subscribe(event.TypeRequestSubmitted, func(ctx context.Context, evt *event.Event) error {
		got = append(got, evt)
		return nil
	})

	evt := event.NewEvent(event.TypeRequestSubmitted, 1, "u-1", nil)
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(got) != 1 || got[0].ID != evt.ID {
		t.Errorf("handler received %d events, want the dispatched one", len(got))
	}
}

func TestDispatcher_DispatchStopsOnError(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	wantErr := errors.New("boom")
	secondRan := false

	d.SubscribeNamed(event.TypeRequestApproved, "first", func(ctx context.Context, evt *event.Event) error {
		return wantErr
	})
	d.SubscribeNamed(event.TypeRequestApproved, "second", func(ctx context.Context, evt *event.Event) error {
		secondRan = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestApproved, 1, "u-1", nil))
	if !errors.Is(err, wantErr) {
		t.Errorf("Dispatch() error = %v, want wrapped %v", err, wantErr)
	}
	if secondRan {
		t.Error("second handler must not run after the first fails")
	}
}

func TestDispatcher_DispatchRecoversPanic(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	d.Subscribe(event.TypeRequestDeclined, func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestDeclined, 1, "u-1", nil))
	if err == nil {
		t.Error("Dispatch() should surface a panicking handler as an error")
	}
}

func TestDispatcher_DispatchAsync(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	count := 0
	d.Subscribe(event.TypeRequestCompleted, func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestCompleted, 1, "u-1", nil))
	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestCompleted, 2, "u-1", nil))

	// Close waits for in-flight handlers
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("async handler ran %d times, want 2", count)
	}
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	ran := false
	d.SubscribeNamed(event.TypeRequestReturned, "audit", func(ctx context.Context, evt *event.Event) error {
		ran = true
		return nil
	})
	d.Unsubscribe(event.TypeRequestReturned, "audit")

	if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestReturned, 1, "u-1", nil)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if ran {
		t.Error("unsubscribed handler must not run")
	}
}

func TestDispatcher_ClosedRejectsDispatch(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestSubmitted, 1, "u-1", nil)); err == nil {
		t.Error("Dispatch() after Close() should fail")
	}
	if err := d.Close(); err == nil {
		t.Error("second Close() should fail")
	}

	// DispatchAsync after Close must be a no-op, not a panic
	done := make(chan struct{})
	go func() {
		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestSubmitted, 1, "u-1", nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("DispatchAsync() after Close() should return immediately")
	}
}

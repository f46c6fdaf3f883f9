package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var scans, signIns int
	d.Subscribe(EventScanCompleted, func(context.Context, Event) error {
		scans++
		return nil
	})
	d.Subscribe(EventSignedIn, func(context.Context, Event) error {
		signIns++
		return nil
	})

	ev := Event{ID: "e1", Type: EventScanCompleted, Identity: "pat-1", Timestamp: time.Now()}
	if err := d.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if scans != 1 || signIns != 0 {
		t.Fatalf("scans = %d, signIns = %d", scans, signIns)
	}
}

func TestDispatcherContinuesPastHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()

	var reached bool
	d.Subscribe(EventSignedOut, func(context.Context, Event) error {
		return errors.New("handler failed")
	})
	d.Subscribe(EventSignedOut, func(context.Context, Event) error {
		reached = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventSignedOut}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reached {
		t.Fatal("a failing handler must not block later handlers")
	}
}

func TestDispatcherIgnoresUnhandledTypes(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventAppointmentBooked}); err != nil {
		t.Fatalf("publish with no subscribers: %v", err)
	}
}

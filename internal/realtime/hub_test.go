package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/internal/events"
)

func TestHubBroadcastReachesOrgSubscribersOnly(t *testing.T) {
	hub := NewHub(nil)

	a := hub.Subscribe("org-a")
	b := hub.Subscribe("org-a")
	other := hub.Subscribe("org-b")
	defer a.Close()
	defer b.Close()
	defer other.Close()

	if n := hub.Broadcast("org-a", []byte(`{"type":"test"}`)); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}

	for _, sub := range []*Subscription{a, b} {
		select {
		case frame := <-sub.Frames():
			if string(frame) != `{"type":"test"}` {
				t.Fatalf("unexpected frame: %s", frame)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive frame")
		}
	}

	select {
	case frame := <-other.Frames():
		t.Fatalf("other org received frame: %s", frame)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	slow := hub.Subscribe("org-a")

	// Fill the buffer without draining, then overflow it.
	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast("org-a", []byte("frame"))
	}
	if n := hub.Broadcast("org-a", []byte("overflow")); n != 0 {
		t.Fatalf("expected overflow frame to be dropped, delivered to %d", n)
	}

	if got := hub.Subscribers("org-a"); got != 0 {
		t.Fatalf("expected slow subscriber to be removed, %d remain", got)
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription was not signalled done")
	}
}

func TestBroadcastRacingCloseDoesNotPanic(t *testing.T) {
	hub := NewHub(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			sub := hub.Subscribe("org-a")
			go sub.Close()
		}
	}()

	for i := 0; i < 2000; i++ {
		hub.Broadcast("org-a", []byte("frame"))
	}
	<-done

	// Every subscriber eventually leaves the hub.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("org-a") > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d subscribers still registered", hub.Subscribers("org-a"))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("org-a")
	sub.Close()
	sub.Close()
	if got := hub.Subscribers("org-a"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestBroadcasterFiltersEventTypes(t *testing.T) {
	hub := NewHub(nil)
	bc := NewBroadcaster(hub, nil)

	orgID := uuid.New().String()
	sub := hub.Subscribe(orgID)
	defer sub.Close()

	payload, _ := json.Marshal(events.AppointmentBookedV1{AppointmentID: "appt-1", OrgID: orgID})
	entry := events.OutboxEntry{
		ID:      uuid.New(),
		OrgID:   orgID,
		Type:    events.TypeAppointmentBooked,
		Payload: payload,
	}
	if err := bc.Handle(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case raw := <-sub.Frames():
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if frame.Type != events.TypeAppointmentBooked {
			t.Fatalf("unexpected frame type: %s", frame.Type)
		}
		var evt events.AppointmentBookedV1
		if err := json.Unmarshal(frame.Data, &evt); err != nil {
			t.Fatalf("bad frame data: %v", err)
		}
		if evt.AppointmentID != "appt-1" {
			t.Fatalf("unexpected payload: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}

	// Events other streams don't care about are ignored.
	ignored := events.OutboxEntry{
		ID:      uuid.New(),
		OrgID:   orgID,
		Type:    events.TypeInvitationCreated,
		Payload: []byte(`{}`),
	}
	if err := bc.Handle(context.Background(), ignored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case frame := <-sub.Frames():
		t.Fatalf("unexpected frame for ignored type: %s", frame)
	default:
	}
}

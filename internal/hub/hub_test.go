package hub

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/models"
)

func changeEvent(userID string) *models.ChangeEvent {
	return &models.ChangeEvent{
		Container: &models.Container{
			ID:          "c-1",
			ContainerID: "MSKU1234567",
			UserID:      userID,
			Status:      "in transit",
		},
		PreviousStatus: "loading",
		NewStatus:      "in transit",
		ChangeType:     models.ChangeStatus,
		Timestamp:      time.Now(),
	}
}

func TestHub_PublishFiltersByOwner(t *testing.T) {
	h := New(zerolog.Nop())
	defer h.Close()

	alice := h.Subscribe("alice")
	bob := h.Subscribe("bob")

	h.Publish(changeEvent("alice"))

	select {
	case event := <-alice.Events():
		if event.Container.UserID != "alice" {
			t.Errorf("delivered event for %q to alice", event.Container.UserID)
		}
	default:
		t.Fatal("alice did not receive her event")
	}

	select {
	case event := <-bob.Events():
		t.Errorf("bob received alice's event: %+v", event)
	default:
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := New(zerolog.Nop())
	defer h.Close()

	sub := h.Subscribe("alice")
	h.Unsubscribe(sub.ID())

	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", h.Subscribers())
	}

	// Unsubscribe is idempotent.
	h.Unsubscribe(sub.ID())

	// Publishing after unsubscribe must not panic on the closed channel.
	h.Publish(changeEvent("alice"))
}

func TestHub_SlowSubscriberDropsNotBlocks(t *testing.T) {
	h := New(zerolog.Nop())
	defer h.Close()

	sub := h.Subscribe("alice")

	// Fill the buffer and then some. Publish must return promptly and
	// count the overflow as dropped.
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(changeEvent("alice"))
	}

	if got := h.Dropped(); got != 5 {
		t.Errorf("dropped = %d, want 5", got)
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Errorf("received = %d, want %d", received, subscriberBuffer)
	}
}

func TestHub_CloseShutsDownSubscribers(t *testing.T) {
	h := New(zerolog.Nop())

	sub := h.Subscribe("alice")
	h.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after hub close")
	}
	if got := h.Subscribe("bob"); got != nil {
		t.Error("Subscribe on a closed hub returned a subscription")
	}

	// Close and Publish are no-ops afterwards.
	h.Close()
	h.Publish(changeEvent("alice"))
}

func TestHub_NilEventsIgnored(t *testing.T) {
	h := New(zerolog.Nop())
	defer h.Close()

	sub := h.Subscribe("alice")

	h.Publish(nil)
	h.Publish(&models.ChangeEvent{})

	select {
	case event := <-sub.Events():
		t.Errorf("received event for nil publish: %+v", event)
	default:
	}
}

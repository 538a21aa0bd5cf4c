package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"yoyaku/pkg/kafka"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"
)

type fakePublisher struct {
	published []kafka.Message
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	f.published = append(f.published, msg)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func testBooking() *model.Booking {
	return &model.Booking{
		ID:           "abc123",
		Date:         "2025-06-10",
		Time:         "11:00",
		CustomerName: "Taro",
		Status:       model.StatusConfirmed,
	}
}

func TestBookingCreatedPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := &kafkaNotifier{
		producer: pub,
		log:      logger.New(logger.Config{Level: "error", Service: "test"}),
	}

	n.BookingCreated(context.Background(), testBooking())

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.published))
	}

	msg := pub.published[0]
	if msg.Key != "2025-06-10_11:00" {
		t.Errorf("expected slot key as partition key, got %q", msg.Key)
	}
	if msg.Headers[kafka.HeaderEventType] != EventBookingCreated {
		t.Errorf("expected event type %q, got %q", EventBookingCreated, msg.Headers[kafka.HeaderEventType])
	}

	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if event.ID != "abc123" || event.CustomerName != "Taro" || event.Date != "2025-06-10" || event.Time != "11:00" {
		t.Errorf("unexpected payload: %+v", event)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	n := &kafkaNotifier{
		producer: pub,
		log:      logger.New(logger.Config{Level: "error", Service: "test"}),
	}

	// Must not panic or propagate; the booking already committed.
	n.BookingDeleted(context.Background(), testBooking())
}

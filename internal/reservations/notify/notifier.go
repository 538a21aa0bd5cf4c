package notify

import (
	"context"
	"time"

	"yoyaku/pkg/kafka"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"
)

const (
	EventBookingCreated = "bookingCreated"
	EventBookingDeleted = "bookingDeleted"

	source = "reservations"

	publishTimeout = 5 * time.Second
)

// BookingEvent is the payload published for lifecycle changes. Consumers
// only see the booking identity, never the client fingerprint.
type BookingEvent struct {
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Notifier announces booking lifecycle changes. Implementations must not
// block the booking flow and must not surface delivery failures to callers.
type Notifier interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingDeleted(ctx context.Context, booking *model.Booking)
	Close() error
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaNotifier struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, log *logger.Logger) Notifier {
	return &kafkaNotifier{producer: producer, log: log}
}

func (n *kafkaNotifier) BookingCreated(ctx context.Context, booking *model.Booking) {
	n.publish(ctx, EventBookingCreated, booking)
}

func (n *kafkaNotifier) BookingDeleted(ctx context.Context, booking *model.Booking) {
	n.publish(ctx, EventBookingDeleted, booking)
}

func (n *kafkaNotifier) publish(ctx context.Context, eventType string, booking *model.Booking) {
	msg := kafka.NewMessage().
		WithKey(booking.SlotKey().String()).
		WithValue(BookingEvent{
			ID:           booking.ID,
			CustomerName: booking.CustomerName,
			Date:         booking.Date,
			Time:         booking.Time,
		}).
		WithEventType(eventType).
		WithSource(source).
		Build()

	// Detach from the request context so a cancelled request does not
	// drop an event for a booking that already committed.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.producer.Publish(publishCtx, msg); err != nil {
		n.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (n *kafkaNotifier) Close() error {
	return n.producer.Close()
}

// noopNotifier serves deployments without a broker configured.
type noopNotifier struct{}

func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) BookingCreated(ctx context.Context, booking *model.Booking) {}
func (noopNotifier) BookingDeleted(ctx context.Context, booking *model.Booking) {}
func (noopNotifier) Close() error                                               { return nil }

// Package events publishes booking lifecycle changes to the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"smart-parking/internal/data/entity"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type EventType string

const (
	BookingCreated   EventType = "booking.created"
	BookingPaid      EventType = "booking.paid"
	BookingCancelled EventType = "booking.cancelled"
	BookingExpired   EventType = "booking.expired"
	BookingCompleted EventType = "booking.completed"
)

// BookingEvent is the message body. The event type doubles as the routing key.
type BookingEvent struct {
	Type          EventType `json:"type"`
	BookingID     string    `json:"bookingId"`
	BookingCode   string    `json:"bookingCode"`
	SpotID        string    `json:"spotId"`
	UserID        string    `json:"userId"`
	BookingStatus string    `json:"bookingStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	TotalAmount   float64   `json:"totalAmount"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewBookingEvent(t EventType, b *entity.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          t,
		BookingID:     b.ID.String(),
		BookingCode:   b.BookingCode,
		SpotID:        b.SpotID.String(),
		UserID:        b.UserID.String(),
		BookingStatus: string(b.BookingStatus),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   b.TotalAmount,
		OccurredAt:    at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// AMQPPublisher sends events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      log.With(zap.String("component", "event_publisher")),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		MessageId:    event.BookingID + ":" + string(event.Type),
		Body:         body,
	})
	if err != nil {
		p.log.Error("Failed to publish booking event",
			zap.Error(err),
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID),
		)
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rai/storefront-payments/modules/shared/events"
)

const exchangeType = "topic"

// Channel is the subset of *amqp.Channel the forwarder needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder republishes domain events to a topic exchange so systems
// outside the process (fulfilment, analytics) can follow order progress.
// The routing key is the lower-cased event type, e.g. "orders.paymentconfirmed".
type AMQPForwarder struct {
	ch       Channel
	exchange string
	logger   *slog.Logger
}

func NewAMQPForwarder(ch Channel, exchange string, logger *slog.Logger) *AMQPForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPForwarder{ch: ch, exchange: exchange, logger: logger}
}

// Handle implements events.Handler.
func (f *AMQPForwarder) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	key := strings.ToLower(event.EventType().String())
	err = f.ch.PublishWithContext(ctx, f.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID(),
		Timestamp:    event.OccurredAt(),
		Type:         event.EventType().String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventType(), err)
	}

	f.logger.Debug("forwarded event", slog.String("routing_key", key), slog.String("event_id", event.EventID()))
	return nil
}

// Forward subscribes the forwarder to every given event type.
func (f *AMQPForwarder) Forward(sub events.Subscriber, types ...events.EventType) error {
	for _, t := range types {
		if err := sub.Subscribe(t, f); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// DialAMQP connects to the broker and declares a durable topic exchange.
// A few attempts are made since the broker may still be starting.
func DialAMQP(url, exchange string, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("amqp dial failed", slog.Int("attempt", i+1), slog.Any("error", err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}

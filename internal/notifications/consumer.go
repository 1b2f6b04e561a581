package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type deliveryStore interface {
	InsertDelivery(ctx context.Context, dedupeKey, userID, notificationType string, payload json.RawMessage) (bool, error)
}

// Consumer drains the notification queue and materializes deferred deliveries
// into the notifications table. Redelivered messages are absorbed by the
// dedupe key.
type Consumer struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	queue    string
	store    deliveryStore
	log      *slog.Logger
}

func NewConsumer(url, exchange, queue string, store deliveryStore, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, exchange: exchange, queue: queue, store: store, log: logger}, nil
}

// Run consumes until the context is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.QueueBind(c.queue, "notifications.#", c.exchange, false, nil); err != nil {
		return err
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return amqp091.ErrClosed
			}
			c.handle(delivery)
		}
	}
}

func (c *Consumer) handle(delivery amqp091.Delivery) {
	var envelope struct {
		Meta Meta         `json:"meta"`
		Data Notification `json:"data"`
	}
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		c.log.Error("malformed notification envelope", slog.Any("err", err))
		_ = delivery.Nack(false, false)
		return
	}

	notification := envelope.Data
	if notification.DedupeKey == "" || notification.UserID == "" {
		c.log.Warn("notification missing routing fields",
			slog.String("message_id", envelope.Meta.ID))
		_ = delivery.Nack(false, false)
		return
	}

	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		_ = delivery.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	inserted, err := c.store.InsertDelivery(ctx, notification.DedupeKey, notification.UserID, notification.Type, payload)
	cancel()
	if err != nil {
		c.log.Error("insert notification", slog.String("key", notification.DedupeKey), slog.Any("err", err))
		_ = delivery.Nack(false, true)
		return
	}
	if !inserted {
		c.log.Info("duplicate notification skipped", slog.String("key", notification.DedupeKey))
	}
	_ = delivery.Ack(false)
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

// ErrUnavailable signals that the message broker connection is down. Callers
// treat it as a distinct condition from ordinary publish failures.
var ErrUnavailable = errors.New("message broker unavailable")

const (
	EventRoutingKey        = "chat.message.new"
	NotificationRoutingKey = "notifications.chat_message"

	NotificationTypeChatMessage = "CHAT_MESSAGE"
)

type Meta struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// ChatEvent is the live "message:new" payload delivered to connected clients
// and published for other server instances.
type ChatEvent struct {
	Type           string           `json:"type"`
	OrganizationID int64            `json:"organizationId"`
	ConversationID int64            `json:"conversationId"`
	Message        ChatEventMessage `json:"message"`
}

type ChatEventMessage struct {
	ID             int64                 `json:"id"`
	ConversationID int64                 `json:"conversationId"`
	Body           string                `json:"body"`
	CreatedAt      time.Time             `json:"createdAt"`
	DeletedAt      *time.Time            `json:"deletedAt"`
	Sender         *models.SenderDisplay `json:"sender"`
}

// Notification is one deferred delivery for an offline recipient.
type Notification struct {
	DedupeKey string              `json:"dedupe_key"`
	UserID    string              `json:"user_id"`
	Type      string              `json:"type"`
	Payload   NotificationPayload `json:"payload"`
}

type NotificationPayload struct {
	ConversationID int64  `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	SenderID       string `json:"senderId"`
	Preview        string `json:"preview"`
	OrganizationID int64  `json:"organizationId"`
	ContextType    string `json:"contextType"`
}

// ChatMessageDedupeKey builds the per-recipient idempotency key for a message
// notification.
func ChatMessageDedupeKey(messageID int64, userID string) string {
	return fmt.Sprintf("chat_message:%d:%s", messageID, userID)
}

// Outbox publishes chat events and notification envelopes to a RabbitMQ topic
// exchange. A nil Outbox is valid and reports itself unavailable, so the
// service runs without a broker in development.
type Outbox struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

func NewOutbox(url, exchange string, logger *slog.Logger) (*Outbox, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &Outbox{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (o *Outbox) Available() bool {
	return o != nil && o.conn != nil && !o.conn.IsClosed()
}

func (o *Outbox) PublishEvent(ctx context.Context, event ChatEvent) error {
	if !o.Available() {
		return nil
	}
	return o.publish(ctx, EventRoutingKey, event)
}

func (o *Outbox) EnqueueNotification(ctx context.Context, notification Notification) error {
	if !o.Available() {
		return ErrUnavailable
	}
	return o.publish(ctx, NotificationRoutingKey, notification)
}

func (o *Outbox) publish(ctx context.Context, key string, data any) error {
	ch, err := o.conn.Channel()
	if err != nil {
		if o.conn.IsClosed() {
			return ErrUnavailable
		}
		return err
	}
	defer ch.Close()

	envelope := Envelope{
		Meta: Meta{
			ID:            uuid.NewString(),
			CorrelationID: uuid.NewString(),
			OccurredAt:    time.Now().UTC(),
		},
		Data: data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, o.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     envelope.Meta.ID,
			CorrelationId: envelope.Meta.CorrelationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		if o.conn.IsClosed() {
			return ErrUnavailable
		}
		return err
	}
	o.log.Info("published", slog.String("key", key), slog.String("exchange", o.exchange))
	return nil
}

func (o *Outbox) Close() error {
	if o == nil || o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"formini/internal/config"
)

// Event is the JSON payload published for each notification. A mail worker
// consuming the queue owns delivery.
type Event struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	To         string          `json:"to"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	Data       json.RawMessage `json:"data,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// publisher is the subset of *amqp.Channel used by QueuePublisher.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueuePublisher hands notifications to RabbitMQ.
type QueuePublisher struct {
	conn    *amqp.Connection
	channel publisher
	queue   string
}

// NewQueuePublisher dials RabbitMQ and declares the durable notification queue.
func NewQueuePublisher(cfg config.AMQPConfig) (*QueuePublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		return nil, errors.New("amqp queue is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &QueuePublisher{conn: conn, channel: ch, queue: cfg.Queue}, nil
}

func (q *QueuePublisher) SendVerificationCode(ctx context.Context, to, code string) error {
	msg, err := VerificationMessage(to, code)
	if err != nil {
		return err
	}
	return q.publish(ctx, KindVerificationCode, msg, nil)
}

func (q *QueuePublisher) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	msg, err := ApprovalRequestMessage(req)
	if err != nil {
		return err
	}
	return q.publish(ctx, KindApprovalRequest, msg, req)
}

func (q *QueuePublisher) SendApprovalDecision(ctx context.Context, d ApprovalDecision) error {
	msg, err := ApprovalDecisionMessage(d)
	if err != nil {
		return err
	}
	return q.publish(ctx, KindApprovalDecision, msg, d)
}

func (q *QueuePublisher) publish(ctx context.Context, kind string, msg Message, data interface{}) error {
	ev := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		To:         msg.To,
		Subject:    msg.Subject,
		Body:       msg.Body,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", kind, err)
		}
		ev.Data = raw
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}

	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// Close closes the channel and connection.
func (q *QueuePublisher) Close() error {
	if ch, ok := q.channel.(*amqp.Channel); ok && ch != nil {
		_ = ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

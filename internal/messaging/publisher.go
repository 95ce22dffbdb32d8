// Package messaging publishes gameplay events to RabbitMQ so companion
// services (push notifications, analytics) can react to them. Publishing is
// best effort: playback never fails because the broker is down.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event types carried on the updates queue.
const (
	EventChapterCompleted    = "chapter_completed"
	EventAchievementUnlocked = "achievement_unlocked"
	EventEndingReached       = "ending_reached"
)

// GameEvent is the wire payload of one gameplay event.
type GameEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	ChapterID int    `json:"chapter_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	At        int64  `json:"at"` // unix milliseconds
}

// EventPublisher emits gameplay events.
//
//go:generate mockery --name EventPublisher --output ./mocks --outpkg mocks --case=underscore
type EventPublisher interface {
	Publish(ctx context.Context, event GameEvent) error
	Close() error
}

type rabbitMQPublisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQPublisher connects to the broker and declares the durable
// updates queue.
func NewRabbitMQPublisher(url, queueName string, logger *zap.Logger) (EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return &rabbitMQPublisher{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		logger:    logger.Named("EventPublisher"),
	}, nil
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, event GameEvent) error {
	if event.At == 0 {
		event.At = time.Now().UnixMilli()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	p.logger.Debug("Event published",
		zap.String("type", event.Type),
		zap.String("userId", event.UserID))
	return nil
}

func (p *rabbitMQPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// noopPublisher is used when no broker is configured.
type noopPublisher struct{}

func NewNoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, GameEvent) error { return nil }
func (noopPublisher) Close() error                             { return nil }

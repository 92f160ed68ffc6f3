package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/logger"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "modaplex.events"

// ErrPublisherClosed 发布器已关闭
var ErrPublisherClosed = errors.New("events publisher closed")

// Envelope 领域事件信封
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher 领域事件发布接口
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// NewEnvelope 构建事件信封
func NewEnvelope(eventType string, data interface{}) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// NoopPublisher 未启用事件总线时使用
type NoopPublisher struct{}

// Publish 丢弃事件
func (NoopPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	logger.Debugw("events_publish_skipped", "event_type", eventType)
	return nil
}

// Close 无操作
func (NoopPublisher) Close() error { return nil }

// RabbitPublisher 基于 RabbitMQ topic exchange 的事件发布器
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	closed   bool
}

// NewPublisher 按配置创建发布器，未启用时返回 NoopPublisher
func NewPublisher(cfg *config.EventsConfig) (Publisher, error) {
	if cfg == nil || !cfg.Enabled || strings.TrimSpace(cfg.URL) == "" {
		return NoopPublisher{}, nil
	}
	return NewRabbitPublisher(cfg.URL, cfg.Exchange)
}

// NewRabbitPublisher 连接 RabbitMQ 并声明持久化 topic exchange
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish 以事件类型作为 routing key 发布持久化消息
func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	envelope := NewEnvelope(eventType, data)
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    envelope.ID,
		Timestamp:    envelope.OccurredAt,
		Type:         eventType,
		Body:         body,
	})
	if err != nil {
		return err
	}
	logger.Debugw("events_published", "event_type", eventType, "event_id", envelope.ID)
	return nil
}

// Close 关闭通道与连接
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Package broker carries change notices between server replicas over a
// RabbitMQ fanout exchange.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/live"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is used when no exchange name is configured.
const DefaultExchange = "rupeeflow.changes"

const publishTimeout = 5 * time.Second

// Handler processes a notice sent by another replica.
type Handler func(ctx context.Context, n Notice) error

// Broker publishes and consumes change notices. Notices sent by this
// replica are ignored on receipt because it already published locally.
type Broker struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	logger   *slog.Logger
	url      string
	exchange string
	origin   string
	retry    service.RetryOptions
	mu       sync.Mutex
}

// New creates a broker. No connection is made until first use.
func New(url, exchange string, logger *slog.Logger) *Broker {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Broker{
		url:      url,
		exchange: exchange,
		origin:   uuid.NewString(),
		logger:   common.LoggerOrDefault(logger),
		retry: service.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     15 * time.Second,
			Multiplier:   2,
		},
	}
}

// Origin identifies this replica on the wire.
func (b *Broker) Origin() string {
	return b.origin
}

// connect returns an open channel, dialing with retries when needed.
func (b *Broker) connect(ctx context.Context) (*amqp091.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil && !b.channel.IsClosed() {
		return b.channel, nil
	}
	b.closeLocked()

	err := common.WithRetry(ctx, func() error {
		conn, err := amqp091.Dial(b.url)
		if err != nil {
			return fmt.Errorf("dial AMQP: %w", err)
		}
		channel, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("open channel: %w", err)
		}
		err = channel.ExchangeDeclare(
			b.exchange, // name
			"fanout",   // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			_ = channel.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange: %w", err)
		}
		b.conn, b.channel = conn, channel
		return nil
	}, b.retry)
	if err != nil {
		return nil, err
	}

	b.logger.Info("connected to broker", "exchange", b.exchange)
	return b.channel, nil
}

// Notify publishes a change notice. It implements live.Notifier.
func (b *Broker) Notify(ctx context.Context, userID string, topic live.Topic) error {
	channel, err := b.connect(ctx)
	if err != nil {
		return err
	}

	body, err := Notice{UserID: userID, Topic: topic, Origin: b.origin, SentAt: time.Now()}.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		b.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}

	b.logger.Debug("published change notice", "user_id", userID, "topic", topic)
	return nil
}

// Consume binds an exclusive queue to the exchange and hands foreign notices
// to handler until ctx is done. Lost connections are re-established.
func (b *Broker) Consume(ctx context.Context, handler Handler) error {
	for {
		err := b.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, common.ErrMaxRetries) {
			return err
		}
		b.logger.Warn("broker consumer interrupted, reconnecting", "error", err)
	}
}

func (b *Broker) consumeOnce(ctx context.Context, handler Handler) error {
	channel, err := b.connect(ctx)
	if err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		b.reset()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		b.reset()
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		b.reset()
		return fmt.Errorf("start consuming: %w", err)
	}

	b.logger.Info("consuming change notices", "queue", queue.Name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				b.reset()
				return fmt.Errorf("message channel closed")
			}
			b.dispatch(ctx, delivery.Body, handler)
		}
	}
}

func (b *Broker) dispatch(ctx context.Context, body []byte, handler Handler) {
	notice, err := NoticeFromJSON(body)
	if err != nil {
		b.logger.Warn("dropping malformed notice", "error", err)
		return
	}
	if notice.Origin == b.origin {
		return
	}
	if err := handler(ctx, notice); err != nil {
		b.logger.Warn("failed to handle notice", "user_id", notice.UserID, "topic", notice.Topic, "error", err)
	}
}

func (b *Broker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
}

func (b *Broker) closeLocked() {
	if b.channel != nil {
		_ = b.channel.Close()
		b.channel = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

// Close drops the connection.
func (b *Broker) Close() error {
	b.reset()
	return nil
}

var _ live.Notifier = (*Broker)(nil)

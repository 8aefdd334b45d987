// Package service publishes box office domain events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/queue"
)

var ErrPublisherClosed = errors.New("publisher closed")

// Publisher keeps one broker connection and re-dials lazily after it
// drops.  It is safe for concurrent use.
type Publisher struct {
	url string
	log *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher connects to the broker and declares the booking.confirmed
// queue.
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{url: url, log: log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue.BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.dropLocked()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p.ch, nil
}

func (p *Publisher) dropLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishJSON sends v as a persistent JSON message to the default exchange
// with routing key key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.dropLocked()
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// PublishBookingConfirmed announces a confirmed booking.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, evt queue.BookingConfirmedEvent) error {
	if err := p.PublishJSON(ctx, queue.BookingConfirmedQueue, evt); err != nil {
		return err
	}
	p.log.Debug("published booking.confirmed", zap.String("booking_id", evt.BookingID))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.dropLocked()
	return nil
}

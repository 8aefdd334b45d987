package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// BookingLogger consumes booking.confirmed and appends one line per booking
// to a log file.
type BookingLogger struct {
	url  string
	path string
	log  *zap.Logger
}

func NewBookingLogger(url, path string, log *zap.Logger) *BookingLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingLogger{url: url, path: path, log: log.Named("booking-consumer")}
}

// Run consumes until ctx is cancelled, re-dialing the broker with backoff.
func (b *BookingLogger) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			b.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = b.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *BookingLogger) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		b.log.Warn("set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := b.Handle(d.Body); err != nil {
			b.log.Error("handle message failed", zap.Error(err))
			// dropped rather than requeued so one bad message cannot spin
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle appends the decoded event to the booking log.
func (b *BookingLogger) Handle(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == "" {
		return errors.New("event without booking_id")
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders one booking log line.
func FormatLine(ev BookingConfirmedEvent) string {
	return fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | event=%q | venue=%q | schedule=%s %s %s | customer=%q | seats=[%s] | subtotal=%d | %s=%d | total=%d\n",
		ev.ConfirmedAt, ev.BookingID, ev.EventTitle, ev.Venue, ev.ScheduleID, ev.Date, ev.Time,
		ev.CustomerName, strings.Join(ev.Seats, ","), ev.Subtotal, ev.FeeName, ev.Fee, ev.TotalAmount)
}

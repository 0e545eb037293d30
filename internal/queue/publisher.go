package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
)

const (
	publishBacklog = 256
	dialTimeout    = 2 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrBacklogFull is returned by Notify when notifications arrive faster than
// the broker takes them.  The notification is dropped.
var ErrBacklogFull = errors.New("notification backlog full")

// Publisher sends notifications to NotificationQueue over a single
// long-lived connection.  Notify only queues the event; Run publishes in the
// background and re-dials a broken connection on the next event.  Publisher
// implements service.Notifier.
type Publisher struct {
	url         string
	log         *zap.Logger
	now         func() time.Time
	dialTimeout time.Duration
	events      chan NotificationEvent

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{
		url:         url,
		log:         log.With(zap.String("component", "notification-publisher")),
		now:         time.Now,
		dialTimeout: dialTimeout,
		events:      make(chan NotificationEvent, publishBacklog),
	}
}

// Notify queues n without waiting on the broker.
func (p *Publisher) Notify(_ context.Context, n model.Notification) error {
	select {
	case p.events <- NewNotificationEvent(n, p.now()):
		return nil
	default:
		return ErrBacklogFull
	}
}

// Run publishes queued notifications until ctx is cancelled.  A failed
// publish is logged and the event dropped.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil {
				p.log.Warn("notification dropped",
					zap.String("user_id", ev.UserID),
					zap.String("kind", ev.Kind),
					zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev NotificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(pctx, "", NotificationQueue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish notification: %w", err)
	}
	p.log.Debug("notification published", zap.String("user_id", ev.UserID), zap.String("kind", ev.Kind))
	return nil
}

// channel returns the open channel, dialling and declaring the queue when
// needed.  Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info("connected to broker", zap.String("queue", NotificationQueue))
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
		p.conn = nil
	}
	return err
}

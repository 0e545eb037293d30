package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// StartNotificationConsumer consumes NotificationQueue until ctx is
// cancelled, writing each delivery to deliveries.  Broker failures are
// logged to log and retried with exponential backoff.
func StartNotificationConsumer(ctx context.Context, url string, deliveries, log *zap.Logger) {
	log = log.With(zap.String("component", "notification-consumer"))
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, deliveries, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			log.Info("notification consumer stopped")
			return
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, deliveries, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, deliveries); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // poison message; requeueing would spin
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, deliveries *zap.Logger) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserID == "" || ev.Kind == "" {
		return errors.New("notification without user or kind")
	}
	deliveries.Info("delivered",
		zap.String("user_id", ev.UserID),
		zap.String("kind", ev.Kind),
		zap.String("reference_id", ev.ReferenceID),
		zap.String("created_at", ev.CreatedAt),
		zap.String("text", ev.Message),
	)
	return nil
}

// sleep waits for d and reports false when ctx ended first.
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

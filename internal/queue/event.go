// Package queue carries user notifications over RabbitMQ: a publisher used by
// the service layer and a background consumer that records deliveries.
package queue

import (
	"time"

	"github.com/connectsphere/booking-core/internal/model"
)

// NotificationQueue is the durable queue shared by publisher and consumer.
const NotificationQueue = "connectsphere.notifications"

// NotificationEvent is the JSON payload of one notification message.
type NotificationEvent struct {
	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// NewNotificationEvent stamps n with at, formatted as RFC 3339 UTC.
func NewNotificationEvent(n model.Notification, at time.Time) NotificationEvent {
	return NotificationEvent{
		UserID:      n.UserID,
		Kind:        string(n.Kind),
		Message:     n.Message,
		ReferenceID: n.ReferenceID,
		CreatedAt:   at.UTC().Format(time.RFC3339),
	}
}

package service

import (
	"context"
)

// NotificationKind names a message for the delivery workers.
type NotificationKind string

const (
	NotificationOTPRequested     NotificationKind = "otp.requested"
	NotificationPaymentCompleted NotificationKind = "payment.completed"
)

// NotificationEvent is one enqueued message. Payload is kind specific.
type NotificationEvent struct {
	RequestID string            `json:"request_id,omitempty"` // For distributed tracing
	Kind      NotificationKind  `json:"kind"`
	UserID    string            `json:"user_id"`
	Email     string            `json:"email"`
	Payload   map[string]string `json:"payload"`
}

// EventPublisher enqueues notifications. Delivery is at-least-once and not awaited.
type EventPublisher interface {
	// PublishNotification enqueues a notification for asynchronous delivery
	PublishNotification(ctx context.Context, event *NotificationEvent) error

	// Close releases any resources held by the publisher
	Close() error
}

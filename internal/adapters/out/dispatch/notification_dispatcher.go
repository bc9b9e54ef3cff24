// Package dispatch provides the outbound stakeholder-facing adapters: the
// notification dispatcher, the staffing resolver and the process environment
// signal hub.
package dispatch

import (
	"context"
	"log/slog"

	"fulfillment/internal/core/ports"
)

// LogNotificationDispatcher implements NotificationDispatcher by writing
// structured log records. It stands in for the external push/SMS/email
// gateways; swapping in a real gateway only replaces this adapter.
type LogNotificationDispatcher struct {
	logger *slog.Logger
}

// NewLogNotificationDispatcher creates a log-backed notification dispatcher.
func NewLogNotificationDispatcher(logger *slog.Logger) *LogNotificationDispatcher {
	return &LogNotificationDispatcher{
		logger: logger.With("component", "notification_dispatcher"),
	}
}

// Send records the notification. Never fails.
func (d *LogNotificationDispatcher) Send(ctx context.Context, n ports.Notification) error {
	d.logger.InfoContext(ctx, "notification dispatched",
		"order_id", n.OrderID.String(),
		"type", n.Type,
		"recipient", n.RecipientRef,
		"channel", n.Channel,
		"message", n.Message,
	)
	return nil
}

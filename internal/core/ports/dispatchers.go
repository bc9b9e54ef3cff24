package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
)

// Notification describes one outbound message about an order.
type Notification struct {
	OrderID      kernel.UUID
	Type         string // e.g. "order_confirmed", "order_packed", "shopping_stalled"
	RecipientRef string // "customer", "shopper", "driver", "concierge"
	Channel      string // "push", "sms", "email"
	Message      string
	Metadata     map[string]string
}

// NotificationDispatcher delivers messages to stakeholders. Fire-and-forget,
// best-effort: the engine logs failures and moves on, and nothing awaits a
// delivery receipt. The actual transports (push/SMS/email) are external.
type NotificationDispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// AssignmentResolver finds stakeholders available to take on a role.
// Backed by an external staffing/presence service.
type AssignmentResolver interface {
	FindAvailable(ctx context.Context, role assignment.Role) ([]kernel.UUID, error)
}

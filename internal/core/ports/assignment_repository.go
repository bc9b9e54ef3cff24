package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
)

// AssignmentRepository defines the persistence contract for stakeholder
// assignments. The store enforces at most one accepted assignment per
// (order, role) pair; HasAccepted lets writers keep their actions idempotent
// under the automation engine's soft deduplication.
type AssignmentRepository interface {
	// Add persists a new assignment.
	Add(ctx context.Context, aggregate *assignment.Assignment) error

	// Update persists a changed assignment.
	Update(ctx context.Context, aggregate *assignment.Assignment) error

	// GetByOrder retrieves all assignments of an order.
	GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*assignment.Assignment, error)

	// HasAccepted reports whether the order already has an accepted
	// assignment for the role.
	HasAccepted(ctx context.Context, orderID kernel.UUID, role assignment.Role) (bool, error)

	// HasPendingOrAccepted reports whether the order already has a
	// non-declined assignment for the role. Auto-assignment skips orders
	// that are already offered to someone.
	HasPendingOrAccepted(ctx context.Context, orderID kernel.UUID, role assignment.Role) (bool, error)
}

package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
)

// WorkflowLogRepository defines the persistence contract for the append-only
// audit trail. Entries are never updated or deleted. Failures to append must
// never be swallowed by callers; they are at minimum logged to the fallback
// channel (the process logger).
type WorkflowLogRepository interface {
	// Append persists a new audit entry.
	Append(ctx context.Context, entry *workflowlog.Entry) error

	// GetByOrder retrieves all entries of an order, oldest first.
	GetByOrder(ctx context.Context, orderID kernel.UUID) ([]*workflowlog.Entry, error)

	// HasRecentEntry reports whether the order has an entry with the given
	// action at or after the cutoff. The automation engine's deduplication
	// asks this about the automation_processed marker.
	HasRecentEntry(ctx context.Context, orderID kernel.UUID, action order.Action, cutoff time.Time) (bool, error)

	// LastTransitionAt returns when the order last changed status, i.e. the
	// newest entry whose previous and new status differ. Returns an
	// ObjectNotFoundError when the order has no transition entries yet.
	LastTransitionAt(ctx context.Context, orderID kernel.UUID) (time.Time, error)
}

// Package ports defines the persistence, transport and dispatcher contracts
// that the application core consumes. Adapters implement these interfaces;
// the core never imports an adapter.
package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates and
// their items.
//
// UpdateStatus is the compare-and-swap at the heart of the workflow: the
// store applies "SET status = target WHERE id = ? AND status = expected" and
// reports a ConflictError when zero rows match because the status moved.
// That single guarantee is what lets the shopper app, the automation engine
// and admin overrides race on the same order safely.
type OrderRepository interface {
	// Add persists a new order aggregate with its items.
	Add(ctx context.Context, aggregate *order.Order, items []*order.Item) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns an ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// UpdateStatus conditionally applies a validated status patch:
	// the update only matches when the stored status still equals expected.
	// Returns a ConflictError when the order exists but its status moved,
	// and an ObjectNotFoundError when the order does not exist at all.
	UpdateStatus(ctx context.Context, id kernel.UUID, expected order.Status, patch order.StatusPatch) error

	// SetAssignedShopper records the shopper who accepted the order.
	SetAssignedShopper(ctx context.Context, id kernel.UUID, shopperID kernel.UUID) error

	// GetItems retrieves all items of an order.
	GetItems(ctx context.Context, orderID kernel.UUID) ([]*order.Item, error)

	// GetItem retrieves a single item of an order.
	GetItem(ctx context.Context, orderID, itemID kernel.UUID) (*order.Item, error)

	// UpdateItem persists a changed item.
	UpdateItem(ctx context.Context, item *order.Item) error

	// AllItemsResolved reports whether no item of the order is still pending.
	// Used by the automation engine's all_items_resolved condition.
	AllItemsResolved(ctx context.Context, orderID kernel.UUID) (bool, error)

	// GetStalledInStatus retrieves orders that entered the given status
	// before the cutoff and are still in it. Used by the escalation sweep.
	GetStalledInStatus(ctx context.Context, status order.Status, cutoff time.Time) ([]*order.Order, error)
}

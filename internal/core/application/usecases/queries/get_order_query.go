// Package queries contains read-only operations for the fulfillment workflow.
// Query handlers read the database directly, bypassing the domain model and
// unit of work, since they never modify state.
package queries

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
)

var ErrGetOrderQueryIsNotConstructed = errors.New(
	"GetOrderQuery must be created via NewGetOrderQuery constructor",
)

// GetOrderQuery retrieves one order with its items.
// The returned Status is the optimistic-concurrency token callers must echo
// back on their next transition request.
type GetOrderQuery struct {
	orderID kernel.UUID

	guard kernel.ConstructorGuard
}

// NewGetOrderQuery creates a query for a single order.
func NewGetOrderQuery(orderID kernel.UUID) (GetOrderQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderQuery{}, err
	}
	return GetOrderQuery{orderID: orderID, guard: kernel.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

// OrderID returns the requested order identifier.
func (q GetOrderQuery) OrderID() kernel.UUID {
	return q.orderID
}

// GetOrderQueryResponse is the read model of one order.
type GetOrderQueryResponse struct {
	ID                  kernel.UUID
	CustomerID          kernel.UUID
	Status              string
	PaymentStatus       string
	AssignedShopperID   *kernel.UUID
	ShoppingStartedAt   *time.Time
	ShoppingCompletedAt *time.Time
	DeliveryStartedAt   *time.Time
	DeliveryCompletedAt *time.Time
	Items               []GetOrderItemResponse
}

// GetOrderItemResponse is the read model of one order item.
type GetOrderItemResponse struct {
	ID               kernel.UUID
	Name             string
	Quantity         int
	ShoppingStatus   string
	FoundQuantity    int
	SubstitutionData string
}

package queries

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
)

var ErrGetWorkflowLogQueryIsNotConstructed = errors.New(
	"GetWorkflowLogQuery must be created via NewGetWorkflowLogQuery constructor",
)

// GetWorkflowLogQuery retrieves the audit trail of one order, oldest first.
type GetWorkflowLogQuery struct {
	orderID kernel.UUID

	guard kernel.ConstructorGuard
}

// NewGetWorkflowLogQuery creates a query for an order's workflow log.
func NewGetWorkflowLogQuery(orderID kernel.UUID) (GetWorkflowLogQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetWorkflowLogQuery{}, err
	}
	return GetWorkflowLogQuery{orderID: orderID, guard: kernel.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetWorkflowLogQuery) Validate() error {
	return q.guard.Validate(ErrGetWorkflowLogQueryIsNotConstructed)
}

// OrderID returns the order whose trail is requested.
func (q GetWorkflowLogQuery) OrderID() kernel.UUID {
	return q.orderID
}

// GetWorkflowLogQueryResponse is the read model of one audit entry.
type GetWorkflowLogQueryResponse struct {
	ID             kernel.UUID
	ActorID        kernel.UUID
	Action         string
	Phase          string
	PreviousStatus string
	NewStatus      string
	OccurredAt     time.Time
	Metadata       map[string]string
}

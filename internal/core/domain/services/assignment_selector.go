package services

import (
	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

// AssignmentSelector is the domain service that picks which available
// stakeholder an order is offered to. The current policy is deliberately
// simple: the first candidate the resolver returned. Ranking by distance,
// load or rating would slot in here without touching the engine.
type AssignmentSelector struct{}

// NewAssignmentSelector creates a new selector.
func NewAssignmentSelector() *AssignmentSelector {
	return &AssignmentSelector{}
}

// Select picks a stakeholder for the role from the resolver's candidates
// and builds the pending assignment to persist.
//
// Returns a ValueIsRequiredError when there are no candidates; callers treat
// that as "nobody available right now", not as a failure.
func (s *AssignmentSelector) Select(
	orderID kernel.UUID,
	role assignment.Role,
	candidates []kernel.UUID,
) (*assignment.Assignment, error) {
	if len(candidates) == 0 {
		return nil, errs.NewValueIsRequiredError("candidates")
	}

	return assignment.NewAssignment(kernel.NewUUID(), orderID, candidates[0], role, assignment.StatusAssigned)
}

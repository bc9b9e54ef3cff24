package order

import (
	"fmt"
	"time"

	"fulfillment/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure orders
// follow the correct fulfillment workflow.
//
// State transitions (happy path, left to right):
//
//	pending ─> confirmed ─> assigned ─> shopping ─> packed ─> in_transit ─> delivered
//	                                                              │
//	                                                              └─> arrived ─> stocking ─> completed
//
// cancelled is reachable from every non-terminal state. delivered, completed
// and cancelled are terminal: no action leads out of them.
//
// Status is a value object that validates state transitions and provides
// string representations for persistence and display.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status when an order is first created.
	Pending

	// Confirmed indicates the order has been confirmed and paid for,
	// and is waiting for a shopper to accept it.
	Confirmed

	// Assigned indicates a shopper has accepted the order.
	Assigned

	// Shopping indicates the shopper is actively picking items.
	Shopping

	// Packed indicates all shopping is done and the order is packed
	// for handoff to a driver.
	Packed

	// InTransit indicates a driver is delivering the order.
	InTransit

	// Delivered indicates the order was handed to the customer.
	// Terminal for the direct-delivery flow.
	Delivered

	// Arrived indicates the driver reached the property for the
	// concierge stocking flow.
	Arrived

	// Stocking indicates a concierge is stocking the delivery.
	Stocking

	// Completed indicates the stocking flow finished. Terminal.
	Completed

	// Cancelled is the terminal state for aborted orders, reachable
	// from every non-terminal status.
	Cancelled
)

// Action names an operation that moves an order along the transition graph.
// Action values are recorded verbatim in the workflow audit log.
type Action string

const (
	ActionConfirmOrder     Action = "confirm_order"
	ActionAcceptOrder      Action = "accept_order"
	ActionStartShopping    Action = "start_shopping"
	ActionCompleteShopping Action = "complete_shopping"
	ActionStartDelivery    Action = "start_delivery"
	ActionCompleteDelivery Action = "complete_delivery"
	ActionMarkArrived      Action = "mark_arrived"
	ActionStartStocking    Action = "start_stocking"
	ActionCompleteStocking Action = "complete_stocking"
	ActionCancelOrder      Action = "cancel_order"

	// ActionRollbackStatus is the audit-log action recorded for reverse
	// transitions. It is never accepted as a forward action.
	ActionRollbackStatus Action = "rollback_status"
)

// getStatusStrings returns a map of Status values to their string representations.
// All statuses are included for string conversion.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "unknown",
		Pending:   "pending",
		Confirmed: "confirmed",
		Assigned:  "assigned",
		Shopping:  "shopping",
		Packed:    "packed",
		InTransit: "in_transit",
		Delivered: "delivered",
		Arrived:   "arrived",
		Stocking:  "stocking",
		Completed: "completed",
		Cancelled: "cancelled",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
// Only valid statuses are included to support validation.
func getValidStatusStrings() map[Status]string {
	m := getStatusStrings()
	delete(m, Unknown)
	return m
}

// transitionGraph holds the forward edges of the status state machine,
// keyed by source status then action. cancel_order edges are added for every
// non-terminal status so cancellation is always available.
func transitionGraph() map[Status]map[Action]Status {
	graph := map[Status]map[Action]Status{
		Pending:   {ActionConfirmOrder: Confirmed},
		Confirmed: {ActionAcceptOrder: Assigned},
		Assigned:  {ActionStartShopping: Shopping},
		Shopping:  {ActionCompleteShopping: Packed},
		Packed:    {ActionStartDelivery: InTransit},
		InTransit: {
			ActionCompleteDelivery: Delivered,
			ActionMarkArrived:      Arrived,
		},
		Arrived:  {ActionStartStocking: Stocking},
		Stocking: {ActionCompleteStocking: Completed},
	}

	for status := range getValidStatusStrings() {
		if status.IsTerminal() {
			continue
		}
		if _, ok := graph[status]; !ok {
			graph[status] = map[Action]Status{}
		}
		graph[status][ActionCancelOrder] = Cancelled
	}

	return graph
}

// rollbackEdges is the fixed whitelist of reverse transitions used to correct
// stakeholder errors. Reverse edges outside this set are rejected.
func rollbackEdges() map[Status]Status {
	return map[Status]Status{
		Assigned: Confirmed,
		Shopping: Assigned,
		Packed:   Shopping,
	}
}

// StatusFromString parses the persisted/wire representation of a status.
// Returns a ValueIsInvalidError for unrecognized values.
func StatusFromString(s string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid",
		fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is valid.
// Unknown (0) and any out-of-range values are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the snake_case name of the status, e.g. "in_transit".
// Safe to call on any Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no action leads out of this status.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Completed || s == Cancelled
}

// CanTransition returns the target status reached by applying action from
// this status. Returns an InvalidTransitionError when the edge is not present
// in the transition graph; no store round-trip should be attempted after that.
func (s Status) CanTransition(action Action) (Status, error) {
	if err := s.Validate(); err != nil {
		return Unknown, err
	}

	edges, ok := transitionGraph()[s]
	if !ok {
		return Unknown, errs.NewInvalidTransitionError(string(action), s.String())
	}

	target, ok := edges[action]
	if !ok {
		return Unknown, errs.NewInvalidTransitionError(string(action), s.String())
	}

	return target, nil
}

// RollbackTarget returns the status reached by rolling back from this status.
// Only the whitelisted reverse edges are allowed; everything else fails with
// an InvalidTransitionError.
func (s Status) RollbackTarget() (Status, error) {
	if err := s.Validate(); err != nil {
		return Unknown, err
	}

	target, ok := rollbackEdges()[s]
	if !ok {
		return Unknown, errs.NewInvalidTransitionError(string(ActionRollbackStatus), s.String())
	}

	return target, nil
}

// StatusPatch describes the store mutation produced by a validated
// transition: the target status plus any phase timestamp stamped by the
// action. Timestamps are set exactly once, at the transition that causes
// them, so at most one pointer is non-nil.
type StatusPatch struct {
	Target              Status
	ShoppingStartedAt   *time.Time
	ShoppingCompletedAt *time.Time
	DeliveryStartedAt   *time.Time
	DeliveryCompletedAt *time.Time
}

// PrepareTransition validates the action against the caller's expected
// status (the optimistic-concurrency token) and returns the patch to apply
// conditionally. The store update must remain guarded by
// "WHERE status = expected" so that concurrent actors cannot double-apply.
func PrepareTransition(expected Status, action Action, at time.Time) (StatusPatch, error) {
	target, err := expected.CanTransition(action)
	if err != nil {
		return StatusPatch{}, err
	}

	patch := StatusPatch{Target: target}
	switch action {
	case ActionStartShopping:
		patch.ShoppingStartedAt = &at
	case ActionCompleteShopping:
		patch.ShoppingCompletedAt = &at
	case ActionStartDelivery:
		patch.DeliveryStartedAt = &at
	case ActionCompleteDelivery:
		patch.DeliveryCompletedAt = &at
	}

	return patch, nil
}

// PrepareRollback validates a reverse transition against the whitelist and
// returns the patch to apply conditionally. Rollbacks never stamp phase
// timestamps; the original stamps stay in place for the audit trail.
func PrepareRollback(expected Status) (StatusPatch, error) {
	target, err := expected.RollbackTarget()
	if err != nil {
		return StatusPatch{}, err
	}

	return StatusPatch{Target: target}, nil
}

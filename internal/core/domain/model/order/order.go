package order

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// the NewOrder or RestoreOrder factory methods. This ensures all orders are properly validated.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder")
)

// PaymentStatus tracks the payment lifecycle of an order. Payment processing
// itself is external; the workflow only reads this value, chiefly through
// automation rule conditions.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Validate checks that the payment status is one of the known values.
func (p PaymentStatus) Validate() error {
	switch p {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentRefunded:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("payment status is invalid",
			fmt.Errorf("%q is not a valid payment status", string(p)))
	}
}

// Order represents a fulfillment order in the system. It is the aggregate
// root that manages the order lifecycle from creation through shopping and
// delivery to completion.
//
// Order follows these invariants:
//   - Must have a valid unique identifier and customer identifier
//   - Status only ever transitions along edges of the transition graph
//   - Phase timestamps are set exactly once, at the transition that causes them
//   - Can only be created through NewOrder or RestoreOrder
//
// The in-memory aggregate is a convenience for callers that have already won
// the store's conditional update; the authoritative concurrency guard is the
// compare-and-swap on the status column, not this struct.
type Order struct {
	id                  kernel.UUID
	customerID          kernel.UUID
	status              Status
	paymentStatus       PaymentStatus
	assignedShopperID   *kernel.UUID
	shoppingStartedAt   *time.Time
	shoppingCompletedAt *time.Time
	deliveryStartedAt   *time.Time
	deliveryCompletedAt *time.Time
	isConstructed       bool
}

// NewOrder creates a new Order in Pending status with payment pending.
// This is the only way to create a brand-new valid Order.
//
// Parameters:
//   - id: Unique identifier for the order (must be valid UUID)
//   - customerID: The customer who placed the order (must be valid UUID)
//
// Returns the created order, or a validation error if any parameter is invalid.
func NewOrder(id kernel.UUID, customerID kernel.UUID) (*Order, error) {
	o := &Order{
		status:        Pending,
		paymentStatus: PaymentPending,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder reconstructs an Order from persistence. All fields are taken
// as stored; status and payment status are validated, timestamps and shopper
// assignment are adopted verbatim.
func RestoreOrder(
	id kernel.UUID,
	customerID kernel.UUID,
	status Status,
	paymentStatus PaymentStatus,
	assignedShopperID *kernel.UUID,
	shoppingStartedAt, shoppingCompletedAt *time.Time,
	deliveryStartedAt, deliveryCompletedAt *time.Time,
) (*Order, error) {
	o := &Order{
		assignedShopperID:   assignedShopperID,
		shoppingStartedAt:   shoppingStartedAt,
		shoppingCompletedAt: shoppingCompletedAt,
		deliveryStartedAt:   deliveryStartedAt,
		deliveryCompletedAt: deliveryCompletedAt,
		isConstructed:       true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		status.Validate(),
		paymentStatus.Validate(),
	); err != nil {
		return nil, err
	}

	o.status = status
	o.paymentStatus = paymentStatus
	return o, nil
}

// Validate ensures the Order instance was properly constructed through one of
// the factory methods. This prevents bypassing validation by directly
// instantiating the struct.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerID returns the identifier of the customer who placed the order.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// PaymentStatus returns the current payment status of the order.
func (o *Order) PaymentStatus() PaymentStatus {
	return o.paymentStatus
}

// AssignedShopper returns the ID of the shopper who accepted the order.
// Returns nil if no shopper is assigned.
func (o *Order) AssignedShopper() *kernel.UUID {
	return o.assignedShopperID
}

// ShoppingStartedAt returns when shopping began, or nil before that phase.
func (o *Order) ShoppingStartedAt() *time.Time { return o.shoppingStartedAt }

// ShoppingCompletedAt returns when shopping finished, or nil before that phase.
func (o *Order) ShoppingCompletedAt() *time.Time { return o.shoppingCompletedAt }

// DeliveryStartedAt returns when delivery began, or nil before that phase.
func (o *Order) DeliveryStartedAt() *time.Time { return o.deliveryStartedAt }

// DeliveryCompletedAt returns when delivery finished, or nil before that phase.
func (o *Order) DeliveryCompletedAt() *time.Time { return o.deliveryCompletedAt }

// Transition applies a forward action to the in-memory aggregate: validates
// the edge from the current status, moves the status and stamps the phase
// timestamp the action owns. Timestamps already set are never overwritten.
//
// Returns an InvalidTransitionError when the action has no edge from the
// current status.
func (o *Order) Transition(action Action, at time.Time) error {
	patch, err := PrepareTransition(o.status, action, at)
	if err != nil {
		return err
	}

	o.applyPatch(patch)
	return nil
}

// Rollback applies a whitelisted reverse transition to the in-memory
// aggregate. Phase timestamps are left untouched.
func (o *Order) Rollback() error {
	patch, err := PrepareRollback(o.status)
	if err != nil {
		return err
	}

	o.applyPatch(patch)
	return nil
}

// AssignShopper records the shopper who accepted the order.
// The shopper ID must be valid and the order must be in a status that can
// carry an assignment (assigned or later, not terminal-cancelled).
func (o *Order) AssignShopper(shopperID kernel.UUID) error {
	if err := shopperID.Validate(); err != nil {
		return err
	}
	if o.status == Pending || o.status == Confirmed || o.status == Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s is not a valid status to carry a shopper assignment", o.status))
	}

	o.assignedShopperID = &shopperID
	return nil
}

// SetPaymentStatus records a payment state reported by the external payment
// collaborator.
func (o *Order) SetPaymentStatus(p PaymentStatus) error {
	if err := p.Validate(); err != nil {
		return err
	}
	o.paymentStatus = p
	return nil
}

func (o *Order) applyPatch(patch StatusPatch) {
	o.status = patch.Target
	if o.shoppingStartedAt == nil && patch.ShoppingStartedAt != nil {
		o.shoppingStartedAt = patch.ShoppingStartedAt
	}
	if o.shoppingCompletedAt == nil && patch.ShoppingCompletedAt != nil {
		o.shoppingCompletedAt = patch.ShoppingCompletedAt
	}
	if o.deliveryStartedAt == nil && patch.DeliveryStartedAt != nil {
		o.deliveryStartedAt = patch.DeliveryStartedAt
	}
	if o.deliveryCompletedAt == nil && patch.DeliveryCompletedAt != nil {
		o.deliveryCompletedAt = patch.DeliveryCompletedAt
	}
}

// setID validates and sets the order's unique identifier.
// This is a private method used only during construction.
func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

// setCustomerID validates and sets the customer identifier.
// This is a private method used only during construction.
func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.customerID = id
	return nil
}

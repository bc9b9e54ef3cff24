package order

import (
	"errors"
	"fmt"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

// ErrItemIsNotConstructed is returned when an Item was not created through
// NewItem or RestoreItem.
var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem or RestoreItem")

// ShoppingStatus tracks the per-item picking state. Item statuses are
// independent of the order status; only the aggregate question "are all items
// resolved" feeds back into the workflow, as an automation rule condition.
type ShoppingStatus int

const (
	// ItemUnknown represents an invalid or undefined shopping status.
	ItemUnknown ShoppingStatus = iota

	// ItemPending means the shopper has not handled the item yet.
	ItemPending

	// ItemFound means the shopper picked the item (possibly a partial quantity).
	ItemFound

	// ItemSubstitutionNeeded means the item is unavailable and a substitute
	// proposal is awaiting the customer's decision.
	ItemSubstitutionNeeded

	// ItemNotAvailable means the item could not be picked and no substitution
	// was made.
	ItemNotAvailable
)

// getShoppingStatusStrings returns a map of ShoppingStatus values to their
// string representations.
func getShoppingStatusStrings() map[ShoppingStatus]string {
	return map[ShoppingStatus]string{
		ItemUnknown:            "unknown",
		ItemPending:            "pending",
		ItemFound:              "found",
		ItemSubstitutionNeeded: "substitution_needed",
		ItemNotAvailable:       "not_available",
	}
}

// ShoppingStatusFromString parses the persisted/wire representation of a
// shopping status.
func ShoppingStatusFromString(s string) (ShoppingStatus, error) {
	for status, str := range getShoppingStatusStrings() {
		if status != ItemUnknown && str == s {
			return status, nil
		}
	}
	return ItemUnknown, errs.NewValueIsInvalidErrorWithCause("shopping status is invalid",
		fmt.Errorf("%q is not a valid shopping status", s))
}

// Validate checks if the ShoppingStatus value is valid.
func (s ShoppingStatus) Validate() error {
	if s <= ItemUnknown || s > ItemNotAvailable {
		return errs.NewValueIsInvalidErrorWithCause("shopping status is invalid",
			fmt.Errorf("%d is not a valid shopping status", s))
	}
	return nil
}

// String returns the snake_case name of the shopping status.
func (s ShoppingStatus) String() string {
	if str, ok := getShoppingStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsResolved reports whether the shopper has handled the item, in any way.
// An order whose items are all resolved is ready to be packed.
func (s ShoppingStatus) IsResolved() bool {
	return s == ItemFound || s == ItemSubstitutionNeeded || s == ItemNotAvailable
}

// Item is a line of an Order: one product and its requested quantity, plus
// the shopper's picking outcome.
type Item struct {
	id               kernel.UUID
	orderID          kernel.UUID
	name             string
	quantity         int
	shoppingStatus   ShoppingStatus
	foundQuantity    int
	substitutionData string
	isConstructed    bool
}

// NewItem creates a new pending item for an order.
// Name must be non-empty and quantity positive.
func NewItem(id kernel.UUID, orderID kernel.UUID, name string, quantity int) (*Item, error) {
	item := &Item{
		shoppingStatus: ItemPending,
		isConstructed:  true,
	}

	if err := errors.Join(
		item.setID(id),
		item.setOrderID(orderID),
		item.setName(name),
		item.setQuantity(quantity),
	); err != nil {
		return nil, err
	}

	return item, nil
}

// RestoreItem reconstructs an Item from persistence.
func RestoreItem(
	id kernel.UUID,
	orderID kernel.UUID,
	name string,
	quantity int,
	shoppingStatus ShoppingStatus,
	foundQuantity int,
	substitutionData string,
) (*Item, error) {
	item := &Item{
		foundQuantity:    foundQuantity,
		substitutionData: substitutionData,
		isConstructed:    true,
	}

	if err := errors.Join(
		item.setID(id),
		item.setOrderID(orderID),
		item.setName(name),
		item.setQuantity(quantity),
		shoppingStatus.Validate(),
	); err != nil {
		return nil, err
	}

	item.shoppingStatus = shoppingStatus
	return item, nil
}

// Validate ensures the Item was created through a factory method.
func (i *Item) Validate() error {
	if i == nil || !i.isConstructed {
		return ErrItemIsNotConstructed
	}
	return nil
}

// ID returns the item's unique identifier.
func (i *Item) ID() kernel.UUID { return i.id }

// OrderID returns the identifier of the owning order.
func (i *Item) OrderID() kernel.UUID { return i.orderID }

// Name returns the product name.
func (i *Item) Name() string { return i.name }

// Quantity returns the requested quantity.
func (i *Item) Quantity() int { return i.quantity }

// ShoppingStatus returns the current picking state.
func (i *Item) ShoppingStatus() ShoppingStatus { return i.shoppingStatus }

// FoundQuantity returns how many units the shopper actually picked.
func (i *Item) FoundQuantity() int { return i.foundQuantity }

// SubstitutionData returns the substitute proposal recorded by the shopper,
// empty unless the item is in substitution_needed.
func (i *Item) SubstitutionData() string { return i.substitutionData }

// MarkFound records that the shopper picked the item.
// foundQuantity must be positive and at most the requested quantity.
func (i *Item) MarkFound(foundQuantity int) error {
	if foundQuantity <= 0 || foundQuantity > i.quantity {
		return errs.NewValueIsOutOfRangeError("foundQuantity", foundQuantity, 1, i.quantity)
	}

	i.shoppingStatus = ItemFound
	i.foundQuantity = foundQuantity
	i.substitutionData = ""
	return nil
}

// MarkSubstitutionNeeded records a substitute proposal for an unavailable item.
func (i *Item) MarkSubstitutionNeeded(substitutionData string) error {
	if substitutionData == "" {
		return errs.NewValueIsRequiredError("substitutionData")
	}

	i.shoppingStatus = ItemSubstitutionNeeded
	i.foundQuantity = 0
	i.substitutionData = substitutionData
	return nil
}

// MarkNotAvailable records that the item could not be picked at all.
func (i *Item) MarkNotAvailable() {
	i.shoppingStatus = ItemNotAvailable
	i.foundQuantity = 0
	i.substitutionData = ""
}

func (i *Item) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.id = id
	return nil
}

func (i *Item) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.orderID = id
	return nil
}

func (i *Item) setName(name string) error {
	if name == "" {
		return errs.NewValueIsRequiredError("name")
	}
	i.name = name
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("quantity is invalid",
			fmt.Errorf("%d is not greater than 0", quantity))
	}
	i.quantity = quantity
	return nil
}

// Package orderrepo provides GORM persistence for the order aggregate and its
// items, including the conditional status update that implements optimistic
// concurrency for the workflow state machine.
package orderrepo

import (
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// status_changed_at is maintained by UpdateStatus and feeds the escalation
// sweep's stall detection.
type OrderDTO struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID          uuid.UUID  `gorm:"type:uuid;index"`
	Status              string     `gorm:"type:varchar(16);index"`
	PaymentStatus       string     `gorm:"type:varchar(16)"`
	AssignedShopperID   *uuid.UUID `gorm:"type:uuid;index"`
	ShoppingStartedAt   *time.Time
	ShoppingCompletedAt *time.Time
	DeliveryStartedAt   *time.Time
	DeliveryCompletedAt *time.Time
	StatusChangedAt     time.Time `gorm:"index"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for order entities.
func (OrderDTO) TableName() string {
	return "orders"
}

// ItemDTO represents the database structure for persisting order items.
type ItemDTO struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID `gorm:"type:uuid;index"`
	Name             string
	Quantity         int
	ShoppingStatus   string `gorm:"type:varchar(24)"`
	FoundQuantity    int
	SubstitutionData string
}

// TableName specifies the database table name for order items.
func (ItemDTO) TableName() string {
	return "order_items"
}

func fromDomain(aggregate *order.Order, statusChangedAt time.Time) OrderDTO {
	var shopperID *uuid.UUID
	if id := aggregate.AssignedShopper(); id != nil {
		raw := id.Bytes()
		shopperID = &raw
	}

	return OrderDTO{
		ID:                  aggregate.ID().Bytes(),
		CustomerID:          aggregate.CustomerID().Bytes(),
		Status:              aggregate.Status().String(),
		PaymentStatus:       string(aggregate.PaymentStatus()),
		AssignedShopperID:   shopperID,
		ShoppingStartedAt:   aggregate.ShoppingStartedAt(),
		ShoppingCompletedAt: aggregate.ShoppingCompletedAt(),
		DeliveryStartedAt:   aggregate.DeliveryStartedAt(),
		DeliveryCompletedAt: aggregate.DeliveryCompletedAt(),
		StatusChangedAt:     statusChangedAt,
	}
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}

	status, err := order.StatusFromString(dto.Status)
	if err != nil {
		return nil, err
	}

	var shopperID *kernel.UUID
	if dto.AssignedShopperID != nil {
		sID, shopperErr := kernel.UUIDFromBytes((*dto.AssignedShopperID)[:])
		if shopperErr != nil {
			return nil, shopperErr
		}
		shopperID = &sID
	}

	return order.RestoreOrder(
		id, customerID, status, order.PaymentStatus(dto.PaymentStatus), shopperID,
		dto.ShoppingStartedAt, dto.ShoppingCompletedAt,
		dto.DeliveryStartedAt, dto.DeliveryCompletedAt)
}

func itemFromDomain(item *order.Item) ItemDTO {
	return ItemDTO{
		ID:               item.ID().Bytes(),
		OrderID:          item.OrderID().Bytes(),
		Name:             item.Name(),
		Quantity:         item.Quantity(),
		ShoppingStatus:   item.ShoppingStatus().String(),
		FoundQuantity:    item.FoundQuantity(),
		SubstitutionData: item.SubstitutionData(),
	}
}

func itemToDomain(dto ItemDTO) (*order.Item, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	shoppingStatus, err := order.ShoppingStatusFromString(dto.ShoppingStatus)
	if err != nil {
		return nil, err
	}

	return order.RestoreItem(
		id, orderID, dto.Name, dto.Quantity,
		shoppingStatus, dto.FoundQuantity, dto.SubstitutionData)
}

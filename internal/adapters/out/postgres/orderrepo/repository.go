package orderrepo

import (
	"context"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db, now: time.Now}
}

// Add saves a new order and its items to the database.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order, items []*order.Item) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate, r.now())
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		itemDTO := itemFromDomain(item)
		if err := r.db.WithContext(ctx).Create(&itemDTO).Error; err != nil {
			return err
		}
	}

	return nil
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// UpdateStatus applies a validated status patch, guarded by the expected
// status. The WHERE clause is the entire concurrency story: when another
// actor moved the order first, zero rows match and a follow-up read decides
// between ConflictError and ObjectNotFoundError.
func (r *GormOrderRepository) UpdateStatus(
	ctx context.Context, id kernel.UUID, expected order.Status, patch order.StatusPatch,
) error {
	if err := id.Validate(); err != nil {
		return err
	}

	fields := map[string]any{
		"status":            patch.Target.String(),
		"status_changed_at": r.now(),
	}
	if patch.ShoppingStartedAt != nil {
		fields["shopping_started_at"] = *patch.ShoppingStartedAt
	}
	if patch.ShoppingCompletedAt != nil {
		fields["shopping_completed_at"] = *patch.ShoppingCompletedAt
	}
	if patch.DeliveryStartedAt != nil {
		fields["delivery_started_at"] = *patch.DeliveryStartedAt
	}
	if patch.DeliveryCompletedAt != nil {
		fields["delivery_completed_at"] = *patch.DeliveryCompletedAt
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND status = ?", id.Bytes(), expected.String()).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&OrderDTO{}).
			Where("id = ?", id.Bytes()).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errs.NewObjectNotFoundError("order", id.String())
		}
		return errs.NewConflictError("order", id.String(), expected.String())
	}

	return nil
}

// SetAssignedShopper records the shopper who accepted the order.
func (r *GormOrderRepository) SetAssignedShopper(ctx context.Context, id, shopperID kernel.UUID) error {
	if err := errors.Join(id.Validate(), shopperID.Validate()); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Update("assigned_shopper_id", shopperID.Bytes())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("order", id.String())
	}

	return nil
}

// GetItems retrieves all items of an order.
func (r *GormOrderRepository) GetItems(ctx context.Context, orderID kernel.UUID) ([]*order.Item, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []ItemDTO
	if err := r.db.WithContext(ctx).Order("id").Find(&dtos, "order_id = ?", orderID.Bytes()).Error; err != nil {
		return nil, err
	}

	items := make([]*order.Item, 0, len(dtos))
	for _, dto := range dtos {
		item, err := itemToDomain(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// GetItem retrieves a single item of an order.
func (r *GormOrderRepository) GetItem(ctx context.Context, orderID, itemID kernel.UUID) (*order.Item, error) {
	if err := errors.Join(orderID.Validate(), itemID.Validate()); err != nil {
		return nil, err
	}

	var dto ItemDTO
	err := r.db.WithContext(ctx).
		First(&dto, "id = ? AND order_id = ?", itemID.Bytes(), orderID.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("item", itemID.String())
		}
		return nil, err
	}

	return itemToDomain(dto)
}

// UpdateItem persists a changed item.
func (r *GormOrderRepository) UpdateItem(ctx context.Context, item *order.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	dto := itemFromDomain(item)
	result := r.db.WithContext(ctx).
		Model(&ItemDTO{}).
		Where("id = ?", dto.ID).
		Updates(map[string]any{
			"shopping_status":   dto.ShoppingStatus,
			"found_quantity":    dto.FoundQuantity,
			"substitution_data": dto.SubstitutionData,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("item", item.ID().String())
	}

	return nil
}

// AllItemsResolved reports whether no item of the order is still pending.
func (r *GormOrderRepository) AllItemsResolved(ctx context.Context, orderID kernel.UUID) (bool, error) {
	if err := orderID.Validate(); err != nil {
		return false, err
	}

	var pending int64
	err := r.db.WithContext(ctx).
		Model(&ItemDTO{}).
		Where("order_id = ? AND shopping_status = ?", orderID.Bytes(), order.ItemPending.String()).
		Count(&pending).Error
	if err != nil {
		return false, err
	}

	return pending == 0, nil
}

// GetStalledInStatus retrieves orders that entered the given status before
// the cutoff and are still in it.
func (r *GormOrderRepository) GetStalledInStatus(
	ctx context.Context, status order.Status, cutoff time.Time,
) ([]*order.Order, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	var dtos []OrderDTO
	err := r.db.WithContext(ctx).
		Find(&dtos, "status = ? AND status_changed_at < ?", status.String(), cutoff).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, domainErr := toDomain(dto)
		if domainErr != nil {
			return nil, domainErr
		}
		orders = append(orders, o)
	}

	return orders, nil
}

package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetOrderQueryHandler reads one order with its items from the database.
type GetOrderQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderQueryHandler creates a handler for single-order queries.
func NewGetOrderQueryHandler(db *gorm.DB) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db}
}

// Handle executes the query. Returns an ObjectNotFoundError when the order
// does not exist.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	resp, err := h.readOrder(ctx, query.OrderID())
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	items, err := h.readItems(ctx, query.OrderID())
	if err != nil {
		return GetOrderQueryResponse{}, err
	}
	resp.Items = items

	return resp, nil
}

func (h GetOrderQueryHandler) readOrder(ctx context.Context, orderID kernel.UUID) (GetOrderQueryResponse, error) {
	row := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			status,
			payment_status,
			assigned_shopper_id,
			shopping_started_at,
			shopping_completed_at,
			delivery_started_at,
			delivery_completed_at
		FROM orders
		WHERE id = ?
	`, orderID.String()).Row()

	var (
		resp                GetOrderQueryResponse
		id, customerID      uuid.UUID
		assignedShopperID   uuid.NullUUID
		shoppingStartedAt   sql.NullTime
		shoppingCompletedAt sql.NullTime
		deliveryStartedAt   sql.NullTime
		deliveryCompletedAt sql.NullTime
	)

	err := row.Scan(
		&id,
		&customerID,
		&resp.Status,
		&resp.PaymentStatus,
		&assignedShopperID,
		&shoppingStartedAt,
		&shoppingCompletedAt,
		&deliveryStartedAt,
		&deliveryCompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GetOrderQueryResponse{}, errs.NewObjectNotFoundError("orderID", orderID)
	}
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if resp.CustomerID, err = kernel.UUIDFromBytes(customerID[:]); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if assignedShopperID.Valid {
		shopperID, idErr := kernel.UUIDFromBytes(assignedShopperID.UUID[:])
		if idErr != nil {
			return GetOrderQueryResponse{}, idErr
		}
		resp.AssignedShopperID = &shopperID
	}
	resp.ShoppingStartedAt = nullableTime(shoppingStartedAt)
	resp.ShoppingCompletedAt = nullableTime(shoppingCompletedAt)
	resp.DeliveryStartedAt = nullableTime(deliveryStartedAt)
	resp.DeliveryCompletedAt = nullableTime(deliveryCompletedAt)

	return resp, nil
}

func (h GetOrderQueryHandler) readItems(ctx context.Context, orderID kernel.UUID) ([]GetOrderItemResponse, error) {
	items := make([]GetOrderItemResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			quantity,
			shopping_status,
			found_quantity,
			substitution_data
		FROM order_items
		WHERE order_id = ?
		ORDER BY id
	`, orderID.String()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item GetOrderItemResponse
		var id uuid.UUID

		err = rows.Scan(
			&id,
			&item.Name,
			&item.Quantity,
			&item.ShoppingStatus,
			&item.FoundQuantity,
			&item.SubstitutionData,
		)
		if err != nil {
			return nil, err
		}

		if item.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

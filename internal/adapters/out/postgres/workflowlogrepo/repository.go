package workflowlogrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"

	"gorm.io/gorm"
)

// GormWorkflowLogRepository implements WorkflowLogRepository using GORM.
type GormWorkflowLogRepository struct {
	db *gorm.DB
}

// NewGormWorkflowLogRepository creates a new GORM workflow log repository.
func NewGormWorkflowLogRepository(db *gorm.DB) *GormWorkflowLogRepository {
	return &GormWorkflowLogRepository{db: db}
}

// Append persists a new audit entry.
func (r *GormWorkflowLogRepository) Append(ctx context.Context, entry *workflowlog.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(entry)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Create(&dto).Error
}

// GetByOrder retrieves all entries of an order, oldest first.
func (r *GormWorkflowLogRepository) GetByOrder(
	ctx context.Context, orderID kernel.UUID,
) ([]*workflowlog.Entry, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []EntryDTO
	err := r.db.WithContext(ctx).
		Order("occurred_at, id").
		Find(&dtos, "order_id = ?", orderID.Bytes()).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*workflowlog.Entry, 0, len(dtos))
	for _, dto := range dtos {
		entry, domainErr := toDomain(dto)
		if domainErr != nil {
			return nil, domainErr
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// HasRecentEntry reports whether the order has an entry with the given action
// at or after the cutoff. This is the automation engine's deduplication probe.
func (r *GormWorkflowLogRepository) HasRecentEntry(
	ctx context.Context, orderID kernel.UUID, action order.Action, cutoff time.Time,
) (bool, error) {
	if err := orderID.Validate(); err != nil {
		return false, err
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&EntryDTO{}).
		Where("order_id = ? AND action = ? AND occurred_at >= ?", orderID.Bytes(), string(action), cutoff).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// LastTransitionAt returns the time of the order's most recent audit entry
// that records an actual status move. Returns the zero time when the order
// has no transition entries yet.
func (r *GormWorkflowLogRepository) LastTransitionAt(
	ctx context.Context, orderID kernel.UUID,
) (time.Time, error) {
	if err := orderID.Validate(); err != nil {
		return time.Time{}, err
	}

	var occurredAt sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&EntryDTO{}).
		Select("MAX(occurred_at)").
		Where("order_id = ? AND previous_status <> new_status", orderID.Bytes()).
		Scan(&occurredAt).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, err
	}

	if !occurredAt.Valid {
		return time.Time{}, nil
	}
	return occurredAt.Time, nil
}

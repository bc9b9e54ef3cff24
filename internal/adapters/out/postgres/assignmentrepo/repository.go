package assignmentrepo

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormAssignmentRepository implements AssignmentRepository using GORM.
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRepository creates a new GORM assignment repository.
func NewGormAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// Add persists a new assignment.
func (r *GormAssignmentRepository) Add(ctx context.Context, aggregate *assignment.Assignment) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update persists a changed assignment.
func (r *GormAssignmentRepository) Update(ctx context.Context, aggregate *assignment.Assignment) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&AssignmentDTO{}).Where("id = ?", dto.ID).Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("assignment", aggregate.ID().String())
	}

	return nil
}

// GetByOrder retrieves all assignments of an order.
func (r *GormAssignmentRepository) GetByOrder(
	ctx context.Context, orderID kernel.UUID,
) ([]*assignment.Assignment, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []AssignmentDTO
	if err := r.db.WithContext(ctx).Find(&dtos, "order_id = ?", orderID.Bytes()).Error; err != nil {
		return nil, err
	}

	assignments := make([]*assignment.Assignment, 0, len(dtos))
	for _, dto := range dtos {
		a, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

// HasAccepted reports whether the order already has an accepted assignment
// for the role.
func (r *GormAssignmentRepository) HasAccepted(
	ctx context.Context, orderID kernel.UUID, role assignment.Role,
) (bool, error) {
	return r.countByStatuses(ctx, orderID, role, []string{string(assignment.StatusAccepted)})
}

// HasPendingOrAccepted reports whether the order already has a non-declined
// assignment for the role.
func (r *GormAssignmentRepository) HasPendingOrAccepted(
	ctx context.Context, orderID kernel.UUID, role assignment.Role,
) (bool, error) {
	return r.countByStatuses(ctx, orderID, role,
		[]string{string(assignment.StatusAssigned), string(assignment.StatusAccepted)})
}

func (r *GormAssignmentRepository) countByStatuses(
	ctx context.Context, orderID kernel.UUID, role assignment.Role, statuses []string,
) (bool, error) {
	if err := errors.Join(orderID.Validate(), role.Validate()); err != nil {
		return false, err
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&AssignmentDTO{}).
		Where("order_id = ? AND role = ? AND status IN ?", orderID.Bytes(), string(role), statuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Package assignmentrepo provides GORM persistence for stakeholder
// assignments. A partial unique index keeps at most one non-declined
// assignment per (order, role) pair.
package assignmentrepo

import (
	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// AssignmentDTO represents the database structure for persisting assignments.
type AssignmentDTO struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;index:idx_assignments_order_role"`
	UserID  uuid.UUID `gorm:"type:uuid;index"`
	Role    string    `gorm:"type:varchar(16);index:idx_assignments_order_role"`
	Status  string    `gorm:"type:varchar(16)"`
}

// TableName specifies the database table name for assignments.
func (AssignmentDTO) TableName() string {
	return "stakeholder_assignments"
}

func fromDomain(aggregate *assignment.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:      aggregate.ID().Bytes(),
		OrderID: aggregate.OrderID().Bytes(),
		UserID:  aggregate.UserID().Bytes(),
		Role:    string(aggregate.Role()),
		Status:  string(aggregate.Status()),
	}
}

func toDomain(dto AssignmentDTO) (*assignment.Assignment, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	userID, err := kernel.UUIDFromBytes(dto.UserID[:])
	if err != nil {
		return nil, err
	}

	return assignment.RestoreAssignment(
		id, orderID, userID,
		assignment.Role(dto.Role), assignment.Status(dto.Status))
}

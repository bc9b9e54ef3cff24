// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// All commands follow a consistent pattern: validation, transaction management, and persistence.
package commands

import (
	"context"

	"fulfillment/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
// These abstractions ensure data consistency across aggregate boundaries.
type (
	// TxManager handles database transaction lifecycle.
	// Ensures atomic operations across multiple repository calls.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to the order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// AssignmentRepoFactory provides access to the assignment repository within a transaction.
	AssignmentRepoFactory interface {
		AssignmentRepository() ports.AssignmentRepository
	}

	// WorkflowLogRepoFactory provides access to the audit log repository within a transaction.
	WorkflowLogRepoFactory interface {
		WorkflowLogRepository() ports.WorkflowLogRepository
	}

	// OrderUoW manages transactions for operations touching only the order
	// aggregate and its audit trail (creation, item updates).
	OrderUoW interface {
		TxManager
		OrderRepoFactory
		WorkflowLogRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// UoW manages transactions across the order, assignment and audit log
	// repositories. Status transitions use this: the conditional update,
	// the assignment write and the audit entry commit atomically.
	UoW interface {
		TxManager
		OrderRepoFactory
		AssignmentRepoFactory
		WorkflowLogRepoFactory
	}

	// UoWFactory creates new unit of work instances for cross-aggregate operations.
	UoWFactory interface {
		Create() UoW
	}
)

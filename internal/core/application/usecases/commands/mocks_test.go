package commands_test

import (
	"context"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order, items []*order.Item) error {
	args := m.Called(ctx, o, items)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(
	ctx context.Context, id kernel.UUID, expected order.Status, patch order.StatusPatch,
) error {
	args := m.Called(ctx, id, expected, patch)
	return args.Error(0)
}

func (m *MockOrderRepository) SetAssignedShopper(ctx context.Context, id, shopperID kernel.UUID) error {
	args := m.Called(ctx, id, shopperID)
	return args.Error(0)
}

func (m *MockOrderRepository) GetItems(ctx context.Context, orderID kernel.UUID) ([]*order.Item, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Item), args.Error(1)
}

func (m *MockOrderRepository) GetItem(ctx context.Context, orderID, itemID kernel.UUID) (*order.Item, error) {
	args := m.Called(ctx, orderID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Item), args.Error(1)
}

func (m *MockOrderRepository) UpdateItem(ctx context.Context, item *order.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockOrderRepository) AllItemsResolved(ctx context.Context, orderID kernel.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) GetStalledInStatus(
	ctx context.Context, status order.Status, cutoff time.Time,
) ([]*order.Order, error) {
	args := m.Called(ctx, status, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockAssignmentRepository struct{ mock.Mock }

func (m *MockAssignmentRepository) Add(ctx context.Context, a *assignment.Assignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByOrder(
	ctx context.Context, orderID kernel.UUID,
) ([]*assignment.Assignment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assignment.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) HasAccepted(
	ctx context.Context, orderID kernel.UUID, role assignment.Role,
) (bool, error) {
	args := m.Called(ctx, orderID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssignmentRepository) HasPendingOrAccepted(
	ctx context.Context, orderID kernel.UUID, role assignment.Role,
) (bool, error) {
	args := m.Called(ctx, orderID, role)
	return args.Bool(0), args.Error(1)
}

type MockWorkflowLogRepository struct{ mock.Mock }

func (m *MockWorkflowLogRepository) Append(ctx context.Context, entry *workflowlog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWorkflowLogRepository) GetByOrder(
	ctx context.Context, orderID kernel.UUID,
) ([]*workflowlog.Entry, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*workflowlog.Entry), args.Error(1)
}

func (m *MockWorkflowLogRepository) HasRecentEntry(
	ctx context.Context, orderID kernel.UUID, action order.Action, cutoff time.Time,
) (bool, error) {
	args := m.Called(ctx, orderID, action, cutoff)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowLogRepository) LastTransitionAt(
	ctx context.Context, orderID kernel.UUID,
) (time.Time, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(time.Time), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockOrderUoW) WorkflowLogRepository() ports.WorkflowLogRepository {
	args := m.Called()
	return args.Get(0).(ports.WorkflowLogRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockUoW struct{ MockOrderUoW }

func (m *MockUoW) AssignmentRepository() ports.AssignmentRepository {
	args := m.Called()
	return args.Get(0).(ports.AssignmentRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockChangePublisher struct{ mock.Mock }

func (m *MockChangePublisher) Publish(ctx context.Context, event ports.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/jobs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Add(ctx context.Context, aggregate *order.Order, items []*order.Item) error {
	args := m.Called(ctx, aggregate, items)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(
	ctx context.Context, orderID kernel.UUID, expected order.Status, patch order.StatusPatch,
) error {
	args := m.Called(ctx, orderID, expected, patch)
	return args.Error(0)
}

func (m *MockOrderRepository) SetAssignedShopper(
	ctx context.Context, orderID kernel.UUID, shopperID kernel.UUID,
) error {
	args := m.Called(ctx, orderID, shopperID)
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
	ctx context.Context, status order.Status, before time.Time,
) ([]*order.Order, error) {
	args := m.Called(ctx, status, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Add(ctx context.Context, aggregate *assignment.Assignment) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Update(ctx context.Context, aggregate *assignment.Assignment) error {
	args := m.Called(ctx, aggregate)
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

type MockWorkflowLogRepository struct {
	mock.Mock
}

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
	ctx context.Context, orderID kernel.UUID, action order.Action, since time.Time,
) (bool, error) {
	args := m.Called(ctx, orderID, action, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowLogRepository) LastTransitionAt(
	ctx context.Context, orderID kernel.UUID,
) (time.Time, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(time.Time), args.Error(1)
}

type MockUoW struct {
	mock.Mock
}

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockUoW) AssignmentRepository() ports.AssignmentRepository {
	args := m.Called()
	return args.Get(0).(ports.AssignmentRepository)
}

func (m *MockUoW) WorkflowLogRepository() ports.WorkflowLogRepository {
	args := m.Called()
	return args.Get(0).(ports.WorkflowLogRepository)
}

type MockUoWFactory struct {
	mock.Mock
}

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockNotificationDispatcher struct {
	mock.Mock
}

func (m *MockNotificationDispatcher) Send(ctx context.Context, notification ports.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func stalledOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(
		kernel.NewUUID(), kernel.NewUUID(), order.Shopping, order.PaymentSucceeded,
		nil, nil, nil, nil, nil)
	require.NoError(t, err)
	return o
}

func newSweepFixture() (*MockUoWFactory, *MockUoW, *MockOrderRepository, *MockWorkflowLogRepository, *MockNotificationDispatcher, *jobs.EscalationJob) {
	orderRepo := &MockOrderRepository{}
	logRepo := &MockWorkflowLogRepository{}
	uow := &MockUoW{}
	factory := &MockUoWFactory{}
	dispatcher := &MockNotificationDispatcher{}

	factory.On("Create").Return(uow)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Commit", mock.Anything).Return(nil)
	uow.On("Rollback", mock.Anything).Return(nil)
	uow.On("OrderRepository").Return(orderRepo)
	uow.On("WorkflowLogRepository").Return(logRepo)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := jobs.NewEscalationJob(factory, dispatcher, logger)
	return factory, uow, orderRepo, logRepo, dispatcher, job
}

func TestEscalationJob_Sweep_EscalatesStalledOrder(t *testing.T) {
	_, _, orderRepo, logRepo, dispatcher, job := newSweepFixture()
	stuck := stalledOrder(t)

	orderRepo.On("GetStalledInStatus", mock.Anything, order.Shopping, mock.Anything).
		Return([]*order.Order{stuck}, nil)
	logRepo.On("HasRecentEntry", mock.Anything, stuck.ID(), workflowlog.ActionEscalated, mock.Anything).
		Return(false, nil)
	dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(n ports.Notification) bool {
		return n.OrderID == stuck.ID() && n.RecipientRef == "concierge"
	})).Return(nil)
	logRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *workflowlog.Entry) bool {
		return e.Action() == workflowlog.ActionEscalated && e.OrderID() == stuck.ID()
	})).Return(nil)

	err := job.Sweep(context.Background())

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}

func TestEscalationJob_Sweep_SkipsAlreadyEscalated(t *testing.T) {
	_, _, orderRepo, logRepo, dispatcher, job := newSweepFixture()
	stuck := stalledOrder(t)

	orderRepo.On("GetStalledInStatus", mock.Anything, order.Shopping, mock.Anything).
		Return([]*order.Order{stuck}, nil)
	logRepo.On("HasRecentEntry", mock.Anything, stuck.ID(), workflowlog.ActionEscalated, mock.Anything).
		Return(true, nil)

	err := job.Sweep(context.Background())

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	logRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestEscalationJob_Sweep_FailureOnOneOrderDoesNotStopBatch(t *testing.T) {
	_, uow, orderRepo, logRepo, dispatcher, job := newSweepFixture()
	first := stalledOrder(t)
	second := stalledOrder(t)

	orderRepo.On("GetStalledInStatus", mock.Anything, order.Shopping, mock.Anything).
		Return([]*order.Order{first, second}, nil)
	logRepo.On("HasRecentEntry", mock.Anything, first.ID(), workflowlog.ActionEscalated, mock.Anything).
		Return(false, errors.New("connection lost"))
	logRepo.On("HasRecentEntry", mock.Anything, second.ID(), workflowlog.ActionEscalated, mock.Anything).
		Return(false, nil)
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)
	logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	err := job.Sweep(context.Background())

	require.NoError(t, err)
	dispatcher.AssertNumberOfCalls(t, "Send", 1)
	uow.AssertCalled(t, "Commit", mock.Anything)
}

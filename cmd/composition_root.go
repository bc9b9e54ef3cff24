package cmd

import (
	"log/slog"
	"os"

	"fulfillment/internal/adapters/out/dispatch"
	"fulfillment/internal/adapters/out/pglistener"
	"fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/core/application/automation"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/rule"
	"fulfillment/internal/jobs"
	"fulfillment/internal/realtime"

	"gorm.io/gorm"
)

type CompositionRoot struct {
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory
	publisher  *postgres.NotifyPublisher
	dispatcher *dispatch.LogNotificationDispatcher
	resolver   *dispatch.StaticAssignmentResolver
	signals    *dispatch.SignalHub
	logger     *slog.Logger
}

func NewCompositionRoot(_ Config, gormDB *gorm.DB) CompositionRoot {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return CompositionRoot{
		gormDB:     gormDB,
		uowFactory: *postgres.NewGormUnitOfWorkFactory(gormDB),
		publisher:  postgres.NewNotifyPublisher(gormDB),
		dispatcher: dispatch.NewLogNotificationDispatcher(logger),
		resolver:   dispatch.NewStaticAssignmentResolver(),
		signals:    dispatch.NewSignalHub(),
		logger:     logger,
	}
}

func (c *CompositionRoot) Logger() *slog.Logger {
	return c.logger
}

func (c *CompositionRoot) SignalHub() *dispatch.SignalHub {
	return c.signals
}

func (c *CompositionRoot) AssignmentResolver() *dispatch.StaticAssignmentResolver {
	return c.resolver
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f)
}

func (c *CompositionRoot) CreateTransitionOrderCommandHandler() commands.TransitionOrderCommandHandler {
	return commands.NewTransitionOrderCommandHandler(c.createUoWFactory(), c.publisher, c.logger)
}

func (c *CompositionRoot) CreateRollbackOrderCommandHandler() commands.RollbackOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewRollbackOrderCommandHandler(f, c.publisher, c.logger)
}

func (c *CompositionRoot) CreateUpdateItemStatusCommandHandler() commands.UpdateItemStatusCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewUpdateItemStatusCommandHandler(f)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetWorkflowLogQueryHandler() queries.GetWorkflowLogQueryHandler {
	return queries.NewGetWorkflowLogQueryHandler(c.gormDB)
}

// CreateRealtimeManager builds the reconnection manager over the postgres
// notification transport.
func (c *CompositionRoot) CreateRealtimeManager(dsn string) (*realtime.Manager, error) {
	transport, err := pglistener.NewTransport(dsn, c.logger)
	if err != nil {
		return nil, err
	}
	return realtime.NewManager(transport, c.signals, c.logger, realtime.Config{}), nil
}

// CreateAutomationEngine builds the rule engine over the standard rule set.
func (c *CompositionRoot) CreateAutomationEngine() (*automation.Engine, error) {
	rules, err := rule.LoadAll(rule.DefaultConfigs())
	if err != nil {
		return nil, err
	}
	return automation.NewEngine(
		rules,
		c.createUoWFactory(),
		c.CreateTransitionOrderCommandHandler(),
		c.dispatcher,
		c.resolver,
		c.logger,
	), nil
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.createUoWFactory(), c.dispatcher, c.logger)
}

func (c *CompositionRoot) createUoWFactory() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}

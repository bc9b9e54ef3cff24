// Package automation executes workflow rules in response to order status
// changes. The engine consumes the realtime change stream, deduplicates
// events across competing consumers through a workflow log marker, evaluates
// rule conditions against fresh reads and runs effects in configuration
// order.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/rule"
	"fulfillment/internal/core/domain/model/workflowlog"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// dedupWindow is how long an automation_processed marker suppresses repeated
// processing of the same order's events. Soft deduplication: competing
// consumers that race within the window may still both proceed, which is why
// every effect must be idempotent.
const dedupWindow = 60 * time.Second

// TimerFunc schedules f after d and returns a stop function. Injected in
// tests to fire delayed rules deterministically.
type TimerFunc func(d time.Duration, f func()) (stop func())

// Engine evaluates and executes automation rules. Rules are injected at
// construction; there is no global registry, so tests and tools can run
// engines with different rule sets side by side.
type Engine struct {
	rules      []*rule.Rule
	uowFactory commands.UoWFactory
	transition commands.TransitionOrderCommandHandler
	dispatcher ports.NotificationDispatcher
	resolver   ports.AssignmentResolver
	selector   *services.AssignmentSelector
	logger     *slog.Logger
	now        func() time.Time
	timer      TimerFunc

	// actorID identifies the engine in workflow log entries and transitions.
	actorID kernel.UUID

	mu          sync.Mutex
	stopTimers  map[int]func()
	nextTimerID int
}

// NewEngine creates an automation engine over the given rule set.
func NewEngine(
	rules []*rule.Rule,
	uowFactory commands.UoWFactory,
	transition commands.TransitionOrderCommandHandler,
	dispatcher ports.NotificationDispatcher,
	resolver ports.AssignmentResolver,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		rules:      rules,
		uowFactory: uowFactory,
		transition: transition,
		dispatcher: dispatcher,
		resolver:   resolver,
		selector:   services.NewAssignmentSelector(),
		logger:     logger.With("component", "automation_engine"),
		now:        time.Now,
		timer: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
		actorID:    kernel.NewUUID(),
		stopTimers: make(map[int]func()),
	}
}

// WithClock overrides the engine's time source and timer. For tests.
func (e *Engine) WithClock(now func() time.Time, timer TimerFunc) *Engine {
	e.now = now
	e.timer = timer
	return e
}

// HandleEvent processes one change stream event. Non-status changes are
// ignored. Returns an error only for infrastructure failures around the
// deduplication marker; rule execution failures are logged and absorbed.
func (e *Engine) HandleEvent(ctx context.Context, event ports.ChangeEvent) error {
	if !event.IsStatusChange() {
		return nil
	}

	fresh, err := e.claimEvent(ctx, event)
	if err != nil {
		return err
	}
	if !fresh {
		e.logger.DebugContext(ctx, "skipping duplicate event",
			"order_id", event.EntityID.String(), "status", event.CurrentStatus.String())
		return nil
	}

	for _, r := range e.rules {
		if !r.Enabled() || r.TriggerStatus() != event.CurrentStatus {
			continue
		}
		e.runRule(ctx, r, event.EntityID)
	}

	return nil
}

// TriggerRule executes one rule by name against an order, bypassing the
// trigger-status filter and any configured delay. Conditions still apply:
// a manual trigger of a rule whose conditions do not hold is a no-op.
func (e *Engine) TriggerRule(ctx context.Context, name string, orderID kernel.UUID) error {
	for _, r := range e.rules {
		if r.Name() != name {
			continue
		}
		if !r.Enabled() {
			return errs.NewRuleConfigurationError(name, "enabled", "false")
		}
		e.executeRule(ctx, r, orderID)
		return nil
	}
	return errs.NewObjectNotFoundError("rule", name)
}

// Cleanup cancels all pending delayed-rule timers.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	stops := make([]func(), 0, len(e.stopTimers))
	for _, stop := range e.stopTimers {
		stops = append(stops, stop)
	}
	e.stopTimers = make(map[int]func())
	e.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// claimEvent implements the soft deduplication handshake: probe for a recent
// automation_processed marker and, when none exists, write one before any
// rule runs. The marker is written first so a crash mid-execution errs on
// the side of not re-running effects.
func (e *Engine) claimEvent(ctx context.Context, event ports.ChangeEvent) (bool, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	cutoff := e.now().Add(-dedupWindow)
	seen, err := uow.WorkflowLogRepository().HasRecentEntry(
		ctx, event.EntityID, workflowlog.ActionAutomationProcessed, cutoff)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	marker, err := workflowlog.NewEntry(
		kernel.NewUUID(), event.EntityID, e.actorID,
		workflowlog.ActionAutomationProcessed,
		event.CurrentStatus, event.CurrentStatus, e.now(), nil)
	if err != nil {
		return false, err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, marker); err != nil {
		return false, err
	}

	if err = uow.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// runRule executes a rule now, or arms its delay timer. Delayed rules
// re-evaluate their conditions at fire time, so a rule whose order moved on
// while the timer ran fizzles instead of acting on stale state.
func (e *Engine) runRule(ctx context.Context, r *rule.Rule, orderID kernel.UUID) {
	if !r.IsDelayed() {
		e.executeRule(ctx, r, orderID)
		return
	}

	e.mu.Lock()
	id := e.nextTimerID
	e.nextTimerID++
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "arming delayed rule",
		"rule", r.Name(), "order_id", orderID.String(), "delay", r.Delay())

	stop := e.timer(r.Delay(), func() {
		e.mu.Lock()
		delete(e.stopTimers, id)
		e.mu.Unlock()
		e.executeRule(context.Background(), r, orderID)
	})

	e.mu.Lock()
	e.stopTimers[id] = stop
	e.mu.Unlock()
}

// executeRule evaluates the rule's conditions and, when they all hold, runs
// its effects in order. An effect failure is logged and the remaining
// effects still run.
func (e *Engine) executeRule(ctx context.Context, r *rule.Rule, orderID kernel.UUID) {
	pass, err := e.conditionsHold(ctx, r, orderID)
	if err != nil {
		e.logger.WarnContext(ctx, "skipping rule, condition evaluation failed",
			"rule", r.Name(), "order_id", orderID.String(), "error", err)
		return
	}
	if !pass {
		e.logger.InfoContext(ctx, "skipping rule, conditions not met",
			"rule", r.Name(), "order_id", orderID.String())
		return
	}

	for _, effect := range r.Effects() {
		if effectErr := e.applyEffect(ctx, r, effect, orderID); effectErr != nil {
			e.logger.WarnContext(ctx, "rule effect failed",
				"rule", r.Name(), "effect", effect.Kind.String(),
				"order_id", orderID.String(), "error", effectErr)
		}
	}
}

// conditionsHold evaluates all conditions against fresh reads. The event
// that triggered the rule is deliberately not consulted: only current state
// counts.
func (e *Engine) conditionsHold(ctx context.Context, r *rule.Rule, orderID kernel.UUID) (bool, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	current, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return false, err
	}

	for _, cond := range r.Conditions() {
		holds, condErr := e.evaluate(ctx, uow, r, cond, current)
		if condErr != nil {
			return false, condErr
		}
		if !holds {
			return false, nil
		}
	}

	return true, nil
}

func (e *Engine) evaluate(
	ctx context.Context,
	uow commands.UoW,
	r *rule.Rule,
	cond rule.Condition,
	current *order.Order,
) (bool, error) {
	switch cond.Kind {
	case rule.ConditionPaymentStatusIs:
		return current.PaymentStatus() == cond.PaymentStatus, nil

	case rule.ConditionAllItemsResolved:
		return uow.OrderRepository().AllItemsResolved(ctx, current.ID())

	case rule.ConditionHasAcceptedAssignment:
		return uow.AssignmentRepository().HasAccepted(ctx, current.ID(), cond.Role)

	case rule.ConditionStillInTriggerStatus:
		return current.Status() == r.TriggerStatus(), nil

	case rule.ConditionMinutesInStatusAtLeast:
		last, err := uow.WorkflowLogRepository().LastTransitionAt(ctx, current.ID())
		if err != nil {
			return false, err
		}
		if last.IsZero() {
			return false, nil
		}
		return e.now().Sub(last) >= time.Duration(cond.Minutes)*time.Minute, nil

	default:
		return false, fmt.Errorf("unhandled condition kind %d", cond.Kind)
	}
}

func (e *Engine) applyEffect(ctx context.Context, r *rule.Rule, effect rule.Effect, orderID kernel.UUID) error {
	switch effect.Kind {
	case rule.ActionAssignStakeholders:
		return e.assignStakeholders(ctx, effect, orderID)

	case rule.ActionSendNotification:
		return e.dispatcher.Send(ctx, ports.Notification{
			OrderID:      orderID,
			Type:         effect.Template,
			RecipientRef: effect.Recipient,
			Channel:      effect.Channel,
			Message:      effect.Template,
			Metadata:     map[string]string{"rule": r.Name()},
		})

	case rule.ActionEscalate:
		return e.escalate(ctx, r, effect, orderID)

	case rule.ActionTransitionStatus:
		return e.transitionStatus(ctx, r, effect, orderID)

	case rule.ActionLogCompletion:
		return e.logCompletion(ctx, r, orderID)

	default:
		return fmt.Errorf("unhandled action kind %d", effect.Kind)
	}
}

// assignStakeholders offers the order to an available stakeholder of the
// role. Idempotent: an existing non-declined assignment for the role means
// the work is already done, possibly by a competing consumer inside the
// deduplication window.
func (e *Engine) assignStakeholders(ctx context.Context, effect rule.Effect, orderID kernel.UUID) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	taken, err := uow.AssignmentRepository().HasPendingOrAccepted(ctx, orderID, effect.Role)
	if err != nil {
		return err
	}
	if taken {
		e.logger.DebugContext(ctx, "assignment already exists",
			"order_id", orderID.String(), "role", string(effect.Role))
		return nil
	}

	candidates, err := e.resolver.FindAvailable(ctx, effect.Role)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		e.logger.InfoContext(ctx, "no stakeholders available",
			"order_id", orderID.String(), "role", string(effect.Role))
		return nil
	}

	pending, err := e.selector.Select(orderID, effect.Role, candidates)
	if err != nil {
		return err
	}
	if err = uow.AssignmentRepository().Add(ctx, pending); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// escalate notifies the concierge desk and records the escalation in the
// workflow log.
func (e *Engine) escalate(ctx context.Context, r *rule.Rule, effect rule.Effect, orderID kernel.UUID) error {
	if err := e.dispatcher.Send(ctx, ports.Notification{
		OrderID:      orderID,
		Type:         effect.Template,
		RecipientRef: "concierge",
		Channel:      "push",
		Message:      effect.Template,
		Metadata:     map[string]string{"rule": r.Name()},
	}); err != nil {
		return err
	}

	return e.appendEntry(ctx, orderID, workflowlog.ActionEscalated,
		map[string]string{"rule": r.Name(), "template": effect.Template})
}

// transitionStatus advances the order using the rule's trigger status as the
// expected status. A conflict means some other actor moved the order first;
// that is the designed outcome of a lost race, not a failure.
func (e *Engine) transitionStatus(ctx context.Context, r *rule.Rule, effect rule.Effect, orderID kernel.UUID) error {
	cmd, err := commands.NewTransitionOrderCommand(orderID, e.actorID, r.TriggerStatus(), effect.OrderAction)
	if err != nil {
		return err
	}
	cmd = cmd.WithMetadata(map[string]string{"rule": r.Name()})

	err = e.transition.Handle(ctx, cmd)
	if errors.Is(err, errs.ErrConflict) {
		e.logger.InfoContext(ctx, "automated transition lost the race",
			"rule", r.Name(), "order_id", orderID.String())
		return nil
	}
	return err
}

func (e *Engine) logCompletion(ctx context.Context, r *rule.Rule, orderID kernel.UUID) error {
	return e.appendEntry(ctx, orderID, workflowlog.ActionRuleCompleted,
		map[string]string{"rule": r.Name()})
}

func (e *Engine) appendEntry(
	ctx context.Context, orderID kernel.UUID, action order.Action, metadata map[string]string,
) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	current, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}

	entry, err := workflowlog.NewEntry(
		kernel.NewUUID(), orderID, e.actorID, action,
		current.Status(), current.Status(), e.now(), metadata)
	if err != nil {
		return err
	}
	if err = uow.WorkflowLogRepository().Append(ctx, entry); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

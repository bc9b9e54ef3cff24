// Package rule provides the declarative automation rule model: trigger
// status, ordered conditions, ordered effects, and an optional execution
// delay. Rules are configuration data, not code.
//
// Condition and action names are resolved against a closed, typed vocabulary
// at load time, so a typo in configuration fails loudly when rules are
// loaded instead of being silently ignored at runtime. Rules that loaded
// successfully but hit an evaluation failure at runtime are skipped with a
// logged warning; other rules proceed.
package rule

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

// ErrRuleIsNotConstructed is returned when a Rule was not created through Load.
var ErrRuleIsNotConstructed = errors.New("Rule must be created via Load")

// ConditionConfig is the raw (name, expected value) pair of a rule condition
// as it appears in configuration.
type ConditionConfig struct {
	Name  string
	Value string
}

// ActionConfig is the raw named effect of a rule as it appears in
// configuration, with its string parameters.
type ActionConfig struct {
	Name   string
	Params map[string]string
}

// Config is the declarative form of an automation rule.
type Config struct {
	Name          string
	TriggerStatus string
	Conditions    []ConditionConfig
	Actions       []ActionConfig
	DelayMinutes  int
	Enabled       bool
}

// Rule is a loaded, validated automation rule.
type Rule struct {
	name          string
	triggerStatus order.Status
	conditions    []Condition
	effects       []Effect
	delay         time.Duration
	enabled       bool
	guard         kernel.ConstructorGuard
}

// Load validates a rule configuration and resolves its condition and action
// names against the typed vocabulary. Unknown names, malformed values, and
// unparseable trigger statuses are load-time RuleConfigurationErrors: the
// caller decides whether to refuse startup or drop the one rule.
func Load(cfg Config) (*Rule, error) {
	if cfg.Name == "" {
		return nil, errs.NewValueIsRequiredError("rule name")
	}

	trigger, err := order.StatusFromString(cfg.TriggerStatus)
	if err != nil {
		return nil, errs.NewRuleConfigurationError(cfg.Name, "trigger status", cfg.TriggerStatus)
	}

	if len(cfg.Actions) == 0 {
		return nil, errs.NewRuleConfigurationError(cfg.Name, "actions", "(empty)")
	}
	if cfg.DelayMinutes < 0 {
		return nil, errs.NewRuleConfigurationError(cfg.Name, "delay", fmt.Sprintf("%d", cfg.DelayMinutes))
	}

	conditions := make([]Condition, 0, len(cfg.Conditions))
	for _, c := range cfg.Conditions {
		cond, condErr := parseCondition(cfg.Name, c.Name, c.Value)
		if condErr != nil {
			return nil, condErr
		}
		conditions = append(conditions, cond)
	}

	effects := make([]Effect, 0, len(cfg.Actions))
	for _, a := range cfg.Actions {
		effect, effectErr := parseEffect(cfg.Name, a.Name, a.Params)
		if effectErr != nil {
			return nil, effectErr
		}
		effects = append(effects, effect)
	}

	return &Rule{
		name:          cfg.Name,
		triggerStatus: trigger,
		conditions:    conditions,
		effects:       effects,
		delay:         time.Duration(cfg.DelayMinutes) * time.Minute,
		enabled:       cfg.Enabled,
		guard:         kernel.NewConstructorGuard(),
	}, nil
}

// LoadAll loads a rule set, failing on the first invalid configuration.
func LoadAll(cfgs []Config) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(cfgs))
	for _, cfg := range cfgs {
		r, err := Load(cfg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Validate ensures the Rule was created through Load.
func (r *Rule) Validate() error {
	if r == nil {
		return ErrRuleIsNotConstructed
	}
	return r.guard.Validate(ErrRuleIsNotConstructed)
}

// Name returns the rule's unique configuration name.
func (r *Rule) Name() string { return r.name }

// TriggerStatus returns the order status whose entry triggers the rule.
func (r *Rule) TriggerStatus() order.Status { return r.triggerStatus }

// Conditions returns the rule's conditions in configuration order.
func (r *Rule) Conditions() []Condition { return r.conditions }

// Effects returns the rule's effects in configuration order.
func (r *Rule) Effects() []Effect { return r.effects }

// Delay returns how long after the trigger the effects run.
// Zero means the rule executes synchronously with the trigger.
func (r *Rule) Delay() time.Duration { return r.delay }

// IsDelayed reports whether the rule defers its effects behind a timer.
// Delayed rules re-evaluate their conditions at fire time.
func (r *Rule) IsDelayed() bool { return r.delay > 0 }

// Enabled reports whether the engine should evaluate the rule at all.
func (r *Rule) Enabled() bool { return r.enabled }

// DefaultConfigs is the standard rule set wired at bootstrap.
//
// auto_assign_on_confirm: when an order is confirmed and paid, offer it to
// available shoppers and tell the customer. The order itself is not advanced;
// a shopper accepting is a manual transition.
//
// notify_customer_packed: when shopping is done and everything is resolved,
// tell the customer their order is packed.
//
// auto_dispatch_packed: when a packed order already has an accepted driver,
// start the delivery automatically.
//
// escalate_stalled_shopping: if an order is still shopping 45 minutes after
// entering the phase, escalate to the concierge desk.
func DefaultConfigs() []Config {
	return []Config{
		{
			Name:          "auto_assign_on_confirm",
			TriggerStatus: "confirmed",
			Conditions: []ConditionConfig{
				{Name: "payment_status_is", Value: "succeeded"},
			},
			Actions: []ActionConfig{
				{Name: "assign_stakeholders", Params: map[string]string{"role": "shopper"}},
				{Name: "send_notification", Params: map[string]string{
					"recipient": "customer", "channel": "push", "template": "order_confirmed",
				}},
			},
			Enabled: true,
		},
		{
			Name:          "notify_customer_packed",
			TriggerStatus: "packed",
			Conditions: []ConditionConfig{
				{Name: "all_items_resolved", Value: "true"},
			},
			Actions: []ActionConfig{
				{Name: "send_notification", Params: map[string]string{
					"recipient": "customer", "channel": "push", "template": "order_packed",
				}},
				{Name: "log_completion"},
			},
			Enabled: true,
		},
		{
			Name:          "auto_dispatch_packed",
			TriggerStatus: "packed",
			Conditions: []ConditionConfig{
				{Name: "has_accepted_assignment", Value: "driver"},
			},
			Actions: []ActionConfig{
				{Name: "transition_status", Params: map[string]string{"action": "start_delivery"}},
			},
			Enabled: true,
		},
		{
			Name:          "escalate_stalled_shopping",
			TriggerStatus: "shopping",
			Conditions: []ConditionConfig{
				{Name: "still_in_trigger_status", Value: "true"},
				{Name: "minutes_in_status_at_least", Value: "45"},
			},
			Actions: []ActionConfig{
				{Name: "escalate", Params: map[string]string{"template": "shopping_stalled"}},
			},
			DelayMinutes: 45,
			Enabled:      true,
		},
	}
}

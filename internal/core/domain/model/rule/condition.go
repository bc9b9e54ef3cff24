package rule

import (
	"fmt"
	"strconv"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

// ConditionKind is the closed vocabulary of predicates a rule may evaluate.
// Conditions are always evaluated against fresh reads of the order, never
// against the triggering event's snapshot.
type ConditionKind int

const (
	// ConditionUnknown represents an invalid or undefined condition kind.
	ConditionUnknown ConditionKind = iota

	// ConditionPaymentStatusIs holds when the order's payment status equals
	// the configured value.
	ConditionPaymentStatusIs

	// ConditionAllItemsResolved holds when no item of the order is still in
	// shopping status pending.
	ConditionAllItemsResolved

	// ConditionHasAcceptedAssignment holds when the order has an accepted
	// assignment for the configured role.
	ConditionHasAcceptedAssignment

	// ConditionStillInTriggerStatus holds when the order is still in the
	// rule's trigger status. The standard guard for delayed rules: if the
	// order advanced while the timer ran, the rule is skipped at fire time.
	ConditionStillInTriggerStatus

	// ConditionMinutesInStatusAtLeast holds when the order has been in its
	// current status for at least the configured number of minutes.
	ConditionMinutesInStatusAtLeast
)

// conditionNames maps the configuration names to kinds. Unknown names fail
// at rule-load time with a RuleConfigurationError.
func conditionNames() map[string]ConditionKind {
	return map[string]ConditionKind{
		"payment_status_is":          ConditionPaymentStatusIs,
		"all_items_resolved":         ConditionAllItemsResolved,
		"has_accepted_assignment":    ConditionHasAcceptedAssignment,
		"still_in_trigger_status":    ConditionStillInTriggerStatus,
		"minutes_in_status_at_least": ConditionMinutesInStatusAtLeast,
	}
}

// String returns the configuration name of the condition kind.
func (k ConditionKind) String() string {
	for name, kind := range conditionNames() {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Condition is one named predicate of a rule with its typed payload.
// Exactly the fields relevant to Kind are set.
type Condition struct {
	Kind          ConditionKind
	PaymentStatus order.PaymentStatus // ConditionPaymentStatusIs
	Role          assignment.Role     // ConditionHasAcceptedAssignment
	Minutes       int                 // ConditionMinutesInStatusAtLeast
}

// parseCondition resolves a (name, value) pair from rule configuration into
// a typed Condition. ruleName is only used to build error messages.
func parseCondition(ruleName, name, value string) (Condition, error) {
	kind, ok := conditionNames()[name]
	if !ok {
		return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition", name)
	}

	cond := Condition{Kind: kind}
	switch kind {
	case ConditionPaymentStatusIs:
		status := order.PaymentStatus(value)
		if err := status.Validate(); err != nil {
			return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition value", value)
		}
		cond.PaymentStatus = status

	case ConditionHasAcceptedAssignment:
		role := assignment.Role(value)
		if err := role.Validate(); err != nil {
			return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition value", value)
		}
		cond.Role = role

	case ConditionMinutesInStatusAtLeast:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < 0 {
			return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition value", value)
		}
		cond.Minutes = minutes

	case ConditionAllItemsResolved, ConditionStillInTriggerStatus:
		// Boolean predicates: only "true" is meaningful, anything else is a
		// configuration mistake.
		if value != "true" {
			return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition value", value)
		}

	default:
		return Condition{}, errs.NewRuleConfigurationError(ruleName, "condition", name)
	}

	return cond, nil
}

// Validate checks that the condition carries a known kind and a consistent payload.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionPaymentStatusIs:
		return c.PaymentStatus.Validate()
	case ConditionHasAcceptedAssignment:
		return c.Role.Validate()
	case ConditionMinutesInStatusAtLeast:
		if c.Minutes < 0 {
			return errs.NewValueIsInvalidErrorWithCause("minutes is invalid",
				fmt.Errorf("%d is negative", c.Minutes))
		}
		return nil
	case ConditionAllItemsResolved, ConditionStillInTriggerStatus:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("condition kind is invalid",
			fmt.Errorf("%d is not a valid condition kind", c.Kind))
	}
}

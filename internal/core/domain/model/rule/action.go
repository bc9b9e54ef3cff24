package rule

import (
	"fmt"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"
)

// ActionKind is the closed vocabulary of effects a rule may execute.
// The vocabulary is fixed but extensible: adding a kind means adding a
// constant, a name mapping, a parse case, and an executor in the engine.
type ActionKind int

const (
	// ActionUnknown represents an invalid or undefined action kind.
	ActionUnknown ActionKind = iota

	// ActionAssignStakeholders asks the assignment resolver for available
	// stakeholders of a role and creates pending assignments. Idempotent:
	// an order that already has an accepted assignment for the role is
	// left alone.
	ActionAssignStakeholders

	// ActionSendNotification dispatches a message to a recipient over a
	// channel. Fire-and-forget, best-effort.
	ActionSendNotification

	// ActionEscalate dispatches an escalation notification to the concierge
	// desk and records the escalation in the workflow log.
	ActionEscalate

	// ActionTransitionStatus advances the order through the state machine
	// using the rule's own trigger status as the optimistic-concurrency
	// token, so automation races lose to concurrent actors exactly like
	// manual calls do.
	ActionTransitionStatus

	// ActionLogCompletion writes a completion marker for the rule into the
	// workflow log.
	ActionLogCompletion
)

// actionNames maps configuration names to kinds. Unknown names fail at
// rule-load time with a RuleConfigurationError.
func actionNames() map[string]ActionKind {
	return map[string]ActionKind{
		"assign_stakeholders": ActionAssignStakeholders,
		"send_notification":   ActionSendNotification,
		"escalate":            ActionEscalate,
		"transition_status":   ActionTransitionStatus,
		"log_completion":      ActionLogCompletion,
	}
}

// String returns the configuration name of the action kind.
func (k ActionKind) String() string {
	for name, kind := range actionNames() {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Effect is one named action of a rule with its typed payload.
// Exactly the fields relevant to Kind are set.
type Effect struct {
	Kind        ActionKind
	Role        assignment.Role // ActionAssignStakeholders
	Recipient   string          // ActionSendNotification: "customer", "shopper", "driver", "concierge"
	Channel     string          // ActionSendNotification: "push", "sms", "email"
	Template    string          // ActionSendNotification / ActionEscalate
	OrderAction order.Action    // ActionTransitionStatus
}

// parseEffect resolves a named action and its parameters from rule
// configuration into a typed Effect.
func parseEffect(ruleName, name string, params map[string]string) (Effect, error) {
	kind, ok := actionNames()[name]
	if !ok {
		return Effect{}, errs.NewRuleConfigurationError(ruleName, "action", name)
	}

	effect := Effect{Kind: kind}
	switch kind {
	case ActionAssignStakeholders:
		role := assignment.Role(params["role"])
		if err := role.Validate(); err != nil {
			return Effect{}, errs.NewRuleConfigurationError(ruleName, "action role", params["role"])
		}
		effect.Role = role

	case ActionSendNotification:
		if params["recipient"] == "" || params["channel"] == "" || params["template"] == "" {
			return Effect{}, errs.NewRuleConfigurationError(ruleName, "action params", name)
		}
		effect.Recipient = params["recipient"]
		effect.Channel = params["channel"]
		effect.Template = params["template"]

	case ActionEscalate:
		effect.Template = params["template"]
		if effect.Template == "" {
			effect.Template = "order_escalated"
		}

	case ActionTransitionStatus:
		action := order.Action(params["action"])
		if action == "" {
			return Effect{}, errs.NewRuleConfigurationError(ruleName, "action params", name)
		}
		effect.OrderAction = action

	case ActionLogCompletion:
		// No parameters.

	default:
		return Effect{}, errs.NewRuleConfigurationError(ruleName, "action", name)
	}

	return effect, nil
}

// Validate checks that the effect carries a known kind and a consistent payload.
func (e Effect) Validate() error {
	switch e.Kind {
	case ActionAssignStakeholders:
		return e.Role.Validate()
	case ActionSendNotification:
		if e.Recipient == "" || e.Channel == "" || e.Template == "" {
			return errs.NewValueIsRequiredError("notification recipient, channel and template")
		}
		return nil
	case ActionTransitionStatus:
		if e.OrderAction == "" {
			return errs.NewValueIsRequiredError("order action")
		}
		return nil
	case ActionEscalate, ActionLogCompletion:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("action kind is invalid",
			fmt.Errorf("%d is not a valid action kind", e.Kind))
	}
}

package rule_test

import (
	"testing"
	"time"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/model/rule"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() rule.Config {
	return rule.Config{
		Name:          "auto_assign_on_confirm",
		TriggerStatus: "confirmed",
		Conditions: []rule.ConditionConfig{
			{Name: "payment_status_is", Value: "succeeded"},
		},
		Actions: []rule.ActionConfig{
			{Name: "assign_stakeholders", Params: map[string]string{"role": "shopper"}},
		},
		Enabled: true,
	}
}

func TestLoad(t *testing.T) {
	t.Run("should load a valid rule with typed conditions and effects", func(t *testing.T) {
		r, err := rule.Load(validConfig())

		require.NoError(t, err)
		require.NoError(t, r.Validate())
		assert.Equal(t, "auto_assign_on_confirm", r.Name())
		assert.Equal(t, order.Confirmed, r.TriggerStatus())
		assert.True(t, r.Enabled())
		assert.False(t, r.IsDelayed())

		require.Len(t, r.Conditions(), 1)
		assert.Equal(t, rule.ConditionPaymentStatusIs, r.Conditions()[0].Kind)
		assert.Equal(t, order.PaymentSucceeded, r.Conditions()[0].PaymentStatus)

		require.Len(t, r.Effects(), 1)
		assert.Equal(t, rule.ActionAssignStakeholders, r.Effects()[0].Kind)
		assert.Equal(t, assignment.RoleShopper, r.Effects()[0].Role)
	})

	t.Run("should fail loudly on an unknown condition name", func(t *testing.T) {
		cfg := validConfig()
		cfg.Conditions = []rule.ConditionConfig{{Name: "payment_cleared", Value: "true"}}

		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should fail loudly on an unknown action name", func(t *testing.T) {
		cfg := validConfig()
		cfg.Actions = []rule.ActionConfig{{Name: "launch_fireworks"}}

		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should fail on malformed condition values", func(t *testing.T) {
		cases := []rule.ConditionConfig{
			{Name: "payment_status_is", Value: "maybe"},
			{Name: "has_accepted_assignment", Value: "janitor"},
			{Name: "minutes_in_status_at_least", Value: "soon"},
			{Name: "minutes_in_status_at_least", Value: "-5"},
			{Name: "all_items_resolved", Value: "yes"},
		}
		for _, c := range cases {
			cfg := validConfig()
			cfg.Conditions = []rule.ConditionConfig{c}
			_, err := rule.Load(cfg)
			require.ErrorIs(t, err, errs.ErrRuleConfiguration, "condition %s=%s", c.Name, c.Value)
		}
	})

	t.Run("should fail on missing notification params", func(t *testing.T) {
		cfg := validConfig()
		cfg.Actions = []rule.ActionConfig{
			{Name: "send_notification", Params: map[string]string{"recipient": "customer"}},
		}
		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should fail on an invalid trigger status", func(t *testing.T) {
		cfg := validConfig()
		cfg.TriggerStatus = "limbo"
		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should require at least one action", func(t *testing.T) {
		cfg := validConfig()
		cfg.Actions = nil
		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should reject negative delays", func(t *testing.T) {
		cfg := validConfig()
		cfg.DelayMinutes = -1
		_, err := rule.Load(cfg)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})

	t.Run("should carry the delay as a duration", func(t *testing.T) {
		cfg := validConfig()
		cfg.DelayMinutes = 45
		r, err := rule.Load(cfg)
		require.NoError(t, err)
		assert.True(t, r.IsDelayed())
		assert.Equal(t, 45*time.Minute, r.Delay())
	})
}

func TestRule_Validate(t *testing.T) {
	t.Run("should reject zero-value and nil rules", func(t *testing.T) {
		var r rule.Rule
		require.ErrorIs(t, r.Validate(), rule.ErrRuleIsNotConstructed)

		var nilRule *rule.Rule
		require.ErrorIs(t, nilRule.Validate(), rule.ErrRuleIsNotConstructed)
	})
}

func TestDefaultConfigs(t *testing.T) {
	t.Run("the shipped rule set loads cleanly", func(t *testing.T) {
		rules, err := rule.LoadAll(rule.DefaultConfigs())
		require.NoError(t, err)
		require.Len(t, rules, 4)

		byName := map[string]bool{}
		for _, r := range rules {
			byName[r.Name()] = true
			require.NoError(t, r.Validate())
		}
		assert.True(t, byName["auto_assign_on_confirm"])
		assert.True(t, byName["escalate_stalled_shopping"])
	})

	t.Run("LoadAll fails fast on the first broken config", func(t *testing.T) {
		cfgs := rule.DefaultConfigs()
		cfgs[1].Actions = []rule.ActionConfig{{Name: "nonexistent"}}
		_, err := rule.LoadAll(cfgs)
		require.ErrorIs(t, err, errs.ErrRuleConfiguration)
	})
}

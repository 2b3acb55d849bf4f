package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	benefit "benefit-gateway/internal/benefit/models"
)

func rule(name, condition string, values any) benefit.EligibilityRule {
	return benefit.EligibilityRule{
		Type:     "userProfile",
		Evidence: name,
		Criteria: benefit.RuleCriteria{Name: name, Condition: condition, ConditionValues: values},
	}
}

func TestEvaluateStrictAllRulesMustPass(t *testing.T) {
	rules := []benefit.EligibilityRule{
		rule("gender", "equals", "female"),
		rule("annualIncome", "lte", 250000),
	}

	res := Evaluate([]Applicant{
		{ID: "u1", Attributes: map[string]any{"gender": "female", "annualIncome": 180000.0}},
		{ID: "u2", Attributes: map[string]any{"gender": "female", "annualIncome": 400000.0}},
	}, rules, true)

	assert.Equal(t, []string{"u1"}, res.EligibleUsers)
	assert.Equal(t, []string{"u2"}, res.IneligibleUsers)
	assert.Len(t, res.Details["u2"], 2)
	assert.True(t, res.Details["u2"][0].Passed)
	assert.False(t, res.Details["u2"][1].Passed)
}

func TestEvaluateNonStrictAnyRuleSuffices(t *testing.T) {
	rules := []benefit.EligibilityRule{
		rule("gender", "equals", "female"),
		rule("annualIncome", "lte", 250000),
	}

	res := Evaluate([]Applicant{
		{ID: "u1", Attributes: map[string]any{"gender": "male", "annualIncome": 100000.0}},
	}, rules, false)

	assert.Equal(t, []string{"u1"}, res.EligibleUsers)
}

func TestEvaluateStrictZeroRulesIsIneligible(t *testing.T) {
	res := EvaluateOne("u1", map[string]any{"gender": "female"}, nil, true)
	assert.Empty(t, res.EligibleUsers)
	assert.Equal(t, []string{"u1"}, res.IneligibleUsers)
}

func TestEvaluateMissingAttributeFailsRule(t *testing.T) {
	res := EvaluateOne("u1", map[string]any{}, []benefit.EligibilityRule{
		rule("caste", "in", []any{"sc", "st"}),
	}, true)

	assert.Equal(t, []string{"u1"}, res.IneligibleUsers)
	assert.Contains(t, res.Details["u1"][0].Reason, "not provided")
}

func TestEvaluateComparisonIsCaseInsensitive(t *testing.T) {
	res := EvaluateOne("u1", map[string]any{"gender": "Female"}, []benefit.EligibilityRule{
		rule("gender", "equals", "female"),
	}, true)
	assert.Equal(t, []string{"u1"}, res.EligibleUsers)
}

func TestEvaluateNumericStringCoercion(t *testing.T) {
	res := EvaluateOne("u1", map[string]any{"class": "10"}, []benefit.EligibilityRule{
		rule("class", "gte", "9"),
	}, true)
	assert.Equal(t, []string{"u1"}, res.EligibleUsers)
}

func TestApplyConditionOperators(t *testing.T) {
	cases := []struct {
		name      string
		actual    any
		condition string
		expected  any
		want      bool
	}{
		{"equals scalar", "sc", "equals", "sc", true},
		{"equals number vs string", 18.0, "equals", "18", true},
		{"in hit", "st", "in", []any{"sc", "st"}, true},
		{"in miss", "general", "in", []any{"sc", "st"}, false},
		{"contains hit", []any{"disability", "minority"}, "contains", "minority", true},
		{"contains miss", []any{"disability"}, "contains", "minority", false},
		{"gte boundary", 60.0, "gte", 60, true},
		{"lt", 17.0, "lt", 18, true},
		{"gt fail", 18.0, "gt", 18, false},
		{"lte fail", 251000.0, "lte", 250000, false},
		{"non-numeric comparison", "abc", "gte", 10, false},
		{"unsupported operator", "x", "matches", "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := applyCondition(tc.actual, tc.condition, tc.expected)
			assert.Equal(t, tc.want, got)
		})
	}
}

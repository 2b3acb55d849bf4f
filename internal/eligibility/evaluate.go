// Package eligibility evaluates an applicant's declared attributes
// against a benefit's declarative rules. Evaluation is pure; callers
// persist the outcome.
package eligibility

import (
	"fmt"
	"strconv"
	"strings"

	benefit "benefit-gateway/internal/benefit/models"
)

// RuleDetail records the outcome of one rule for one applicant.
type RuleDetail struct {
	RuleType  string `json:"ruleType"`
	Evidence  string `json:"evidence"`
	Condition string `json:"condition"`
	Passed    bool   `json:"passed"`
	Reason    string `json:"reason,omitempty"`
}

// Result is the outcome of evaluating one or more applicants. The
// eligible/ineligible lists partition the applicant ids; Details keys
// per-applicant rule outcomes.
type Result struct {
	EligibleUsers   []string                `json:"eligibleUsers"`
	IneligibleUsers []string                `json:"ineligibleUsers"`
	Details         map[string][]RuleDetail `json:"details"`
}

// Applicant pairs an identifier with the declared attribute map the
// rules are checked against.
type Applicant struct {
	ID         string
	Attributes map[string]any
}

// Evaluate runs every rule against every applicant. In strict mode an
// applicant is eligible only when all rules pass; in non-strict mode a
// single passing rule suffices. A benefit with zero rules makes every
// applicant ineligible in strict mode: absent criteria must not grant
// blanket eligibility.
func Evaluate(applicants []Applicant, rules []benefit.EligibilityRule, strict bool) Result {
	res := Result{
		EligibleUsers:   []string{},
		IneligibleUsers: []string{},
		Details:         make(map[string][]RuleDetail, len(applicants)),
	}

	for _, applicant := range applicants {
		details := make([]RuleDetail, 0, len(rules))
		passed := 0
		for _, rule := range rules {
			d := checkRule(applicant.Attributes, rule)
			if d.Passed {
				passed++
			}
			details = append(details, d)
		}
		res.Details[applicant.ID] = details

		eligible := false
		if strict {
			eligible = len(rules) > 0 && passed == len(rules)
		} else {
			eligible = passed > 0
		}
		if eligible {
			res.EligibleUsers = append(res.EligibleUsers, applicant.ID)
		} else {
			res.IneligibleUsers = append(res.IneligibleUsers, applicant.ID)
		}
	}
	return res
}

// EvaluateOne is the single-applicant convenience form used by the
// recheck loop.
func EvaluateOne(applicantID string, attrs map[string]any, rules []benefit.EligibilityRule, strict bool) Result {
	return Evaluate([]Applicant{{ID: applicantID, Attributes: attrs}}, rules, strict)
}

func checkRule(attrs map[string]any, rule benefit.EligibilityRule) RuleDetail {
	d := RuleDetail{
		RuleType:  rule.Type,
		Evidence:  rule.Evidence,
		Condition: rule.Criteria.Condition,
	}

	key := rule.Criteria.Name
	if key == "" {
		key = rule.Evidence
	}
	raw, ok := attrs[key]
	if !ok {
		d.Reason = fmt.Sprintf("attribute %q not provided", key)
		return d
	}

	passed, reason := applyCondition(raw, rule.Criteria.Condition, rule.Criteria.ConditionValues)
	d.Passed = passed
	d.Reason = reason
	return d
}

func applyCondition(actual any, condition string, expected any) (bool, string) {
	switch strings.ToLower(condition) {
	case "equals", "eq":
		if normalize(actual) == normalize(expected) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)

	case "in":
		for _, candidate := range asList(expected) {
			if normalize(actual) == normalize(candidate) {
				return true, ""
			}
		}
		return false, fmt.Sprintf("%v not in %v", actual, expected)

	case "contains":
		for _, have := range asList(actual) {
			if normalize(have) == normalize(expected) {
				return true, ""
			}
		}
		return false, fmt.Sprintf("%v does not contain %v", actual, expected)

	case "gte", "lte", "gt", "lt":
		a, okA := asNumber(actual)
		b, okB := asNumber(expected)
		if !okA || !okB {
			return false, fmt.Sprintf("non-numeric comparison: %v %s %v", actual, condition, expected)
		}
		var pass bool
		switch strings.ToLower(condition) {
		case "gte":
			pass = a >= b
		case "lte":
			pass = a <= b
		case "gt":
			pass = a > b
		case "lt":
			pass = a < b
		}
		if pass {
			return true, ""
		}
		return false, fmt.Sprintf("%v %s %v is false", actual, condition, expected)

	default:
		return false, fmt.Sprintf("unsupported condition %q", condition)
	}
}

// normalize folds scalars into a comparable case-insensitive string so
// "Female" matches "female" and json float 18 matches "18".
func normalize(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
	}
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

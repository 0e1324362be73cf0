// Package rules evaluates workflow rule conditions against a purchase
// requisition's attribute snapshot and resolves the approver roles a PR
// requires.
package rules

import (
	"github.com/rs/zerolog"

	"github.com/procurio/be-pr-approvals/internal/model"
)

// Engine performs rule evaluation. Evaluation never fails: malformed or
// inapplicable conditions simply do not match, and unsupported operators
// are logged as configuration warnings.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an Engine that reports configuration warnings to log.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// EvaluateCondition evaluates a single condition against the snapshot.
// A field absent from the snapshot never matches, regardless of operator.
func (e *Engine) EvaluateCondition(c model.Condition, snapshot map[string]any) bool {
	attr, ok := snapshot[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case model.OpGreaterThan:
		cmp, ok := compare(attr, c.Value)
		return ok && cmp > 0
	case model.OpLessThan:
		cmp, ok := compare(attr, c.Value)
		return ok && cmp < 0
	case model.OpGreaterOrEqual:
		cmp, ok := compare(attr, c.Value)
		return ok && cmp >= 0
	case model.OpLessOrEqual:
		cmp, ok := compare(attr, c.Value)
		return ok && cmp <= 0
	case model.OpEqual:
		return strictEqual(attr, c.Value)
	case model.OpNotEqual:
		return !strictEqual(attr, c.Value)
	default:
		e.log.Warn().
			Str("field", c.Field).
			Str("operator", string(c.Operator)).
			Msg("Unsupported condition operator; condition evaluates false")
		return false
	}
}

// EvaluateConditions evaluates a condition set under AND or OR logic.
// Any logic value other than OR behaves as AND.
func (e *Engine) EvaluateConditions(conditions []model.Condition, snapshot map[string]any, logic model.Logic) bool {
	if logic == model.LogicOr {
		for _, c := range conditions {
			if e.EvaluateCondition(c, snapshot) {
				return true
			}
		}
		return false
	}
	for _, c := range conditions {
		if !e.EvaluateCondition(c, snapshot) {
			return false
		}
	}
	return true
}

// DetermineNextApprovers returns the deduplicated set of approver roles
// required for the snapshot. Every matching rule contributes its role: a PR
// matching several rules needs sign-off from each matched role, not just
// the first.
func (e *Engine) DetermineNextApprovers(workflowRules []model.Rule, snapshot map[string]any) []string {
	seen := make(map[string]struct{})
	var roles []string

	for _, rule := range workflowRules {
		if len(rule.Conditions) == 0 {
			continue
		}
		if !e.EvaluateConditions(rule.Conditions, snapshot, rule.Logic) {
			continue
		}
		if _, ok := seen[rule.ApproverRole]; ok {
			continue
		}
		seen[rule.ApproverRole] = struct{}{}
		roles = append(roles, rule.ApproverRole)
	}
	return roles
}

// compare orders two scalar values. It returns ok=false when the values are
// not mutually orderable (mixed types, or non-scalar input). Numbers order
// numerically, strings lexicographically.
func compare(attr, value any) (int, bool) {
	if af, ok := toFloat(attr); ok {
		vf, ok := toFloat(value)
		if !ok {
			return 0, false
		}
		switch {
		case af < vf:
			return -1, true
		case af > vf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := attr.(string)
	vs, vok := value.(string)
	if !aok || !vok {
		return 0, false
	}
	switch {
	case as < vs:
		return -1, true
	case as > vs:
		return 1, true
	default:
		return 0, true
	}
}

// strictEqual implements the equality operators: numbers compare by value
// across numeric types, everything else requires matching type and value.
func strictEqual(attr, value any) bool {
	if af, aok := toFloat(attr); aok {
		vf, vok := toFloat(value)
		return vok && af == vf
	}
	return attr == value
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

package model

import "github.com/procurio/be-pr-approvals/internal/errors"

var knownOperators = map[Operator]bool{
	OpGreaterThan:    true,
	OpLessThan:       true,
	OpGreaterOrEqual: true,
	OpLessOrEqual:    true,
	OpEqual:          true,
	OpNotEqual:       true,
}

// Validate rejects malformed conditions at rule-creation time instead of
// deferring failures to evaluation time.
func (c Condition) Validate() error {
	if c.Field == "" {
		return errors.InvalidInput("condition.field", "field is required")
	}
	if !knownOperators[c.Operator] {
		return errors.InvalidInput("condition.operator",
			"operator must be one of >, <, >=, <=, ==, !=")
	}
	switch c.Value.(type) {
	case string, float64, float32, int, int32, int64:
		return nil
	default:
		return errors.InvalidInput("condition.value", "value must be a string or a number")
	}
}

// NormalizeLogic applies the AND default and rejects unknown logic values.
func NormalizeLogic(logic Logic) (Logic, error) {
	switch logic {
	case "":
		return LogicAnd, nil
	case LogicAnd, LogicOr:
		return logic, nil
	default:
		return "", errors.InvalidInput("logic", "logic must be AND or OR")
	}
}

// ValidateRule checks a rule before it is appended to a workflow.
func ValidateRule(conditions []Condition, logic Logic, approverRole string) (Logic, error) {
	if len(conditions) == 0 {
		return "", errors.InvalidInput("conditions", "a rule requires at least one condition")
	}
	if approverRole == "" {
		return "", errors.InvalidInput("approverRole", "approver role is required")
	}
	normalized, err := NormalizeLogic(logic)
	if err != nil {
		return "", err
	}
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return "", err
		}
	}
	return normalized, nil
}

package rules

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/procurio/be-pr-approvals/internal/model"
)

func testEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

func snapshot() map[string]any {
	return map[string]any{
		"item":         "laptop",
		"quantity":     3,
		"totalValue":   1500.0,
		"departmentId": "dep-eng",
		"categoryId":   "cat-hw",
		"status":       "pending",
	}
}

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name string
		cond model.Condition
		want bool
	}{
		{"gt true", model.Condition{Field: "totalValue", Operator: model.OpGreaterThan, Value: 1000.0}, true},
		{"gt false on equal", model.Condition{Field: "totalValue", Operator: model.OpGreaterThan, Value: 1500.0}, false},
		{"lt true", model.Condition{Field: "totalValue", Operator: model.OpLessThan, Value: 2000.0}, true},
		{"gte on equal", model.Condition{Field: "totalValue", Operator: model.OpGreaterOrEqual, Value: 1500.0}, true},
		{"lte false", model.Condition{Field: "totalValue", Operator: model.OpLessOrEqual, Value: 100.0}, false},
		{"eq string", model.Condition{Field: "departmentId", Operator: model.OpEqual, Value: "dep-eng"}, true},
		{"eq string miss", model.Condition{Field: "departmentId", Operator: model.OpEqual, Value: "dep-fin"}, false},
		{"neq string", model.Condition{Field: "categoryId", Operator: model.OpNotEqual, Value: "cat-sw"}, true},
		{"int attribute vs float value", model.Condition{Field: "quantity", Operator: model.OpGreaterOrEqual, Value: 3.0}, true},
		{"int attribute eq int value", model.Condition{Field: "quantity", Operator: model.OpEqual, Value: 3}, true},
		{"string ordering", model.Condition{Field: "item", Operator: model.OpGreaterThan, Value: "desk"}, true},
		{"mixed types never order", model.Condition{Field: "item", Operator: model.OpGreaterThan, Value: 10.0}, false},
		{"mixed types never equal", model.Condition{Field: "totalValue", Operator: model.OpEqual, Value: "1500"}, false},
	}

	e := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateCondition(tt.cond, snapshot()))
		})
	}
}

func TestEvaluateConditionMissingField(t *testing.T) {
	e := testEngine()
	for _, op := range []model.Operator{
		model.OpGreaterThan, model.OpLessThan, model.OpGreaterOrEqual,
		model.OpLessOrEqual, model.OpEqual, model.OpNotEqual,
	} {
		cond := model.Condition{Field: "nope", Operator: op, Value: 1.0}
		assert.False(t, e.EvaluateCondition(cond, snapshot()), "operator %s", op)
	}
}

func TestEvaluateConditionUnknownOperator(t *testing.T) {
	e := testEngine()
	cond := model.Condition{Field: "totalValue", Operator: "~=", Value: 1500.0}
	assert.False(t, e.EvaluateCondition(cond, snapshot()))
}

func TestEvaluateConditionsLogic(t *testing.T) {
	e := testEngine()
	hit := model.Condition{Field: "totalValue", Operator: model.OpGreaterThan, Value: 1000.0}
	miss := model.Condition{Field: "totalValue", Operator: model.OpGreaterThan, Value: 9000.0}

	assert.True(t, e.EvaluateConditions([]model.Condition{hit, hit}, snapshot(), model.LogicAnd))
	assert.False(t, e.EvaluateConditions([]model.Condition{hit, miss}, snapshot(), model.LogicAnd))
	assert.True(t, e.EvaluateConditions([]model.Condition{hit, miss}, snapshot(), model.LogicOr))
	assert.False(t, e.EvaluateConditions([]model.Condition{miss, miss}, snapshot(), model.LogicOr))

	// Unspecified logic behaves as AND.
	assert.False(t, e.EvaluateConditions([]model.Condition{hit, miss}, snapshot(), ""))
}

func TestDetermineNextApproversFanOut(t *testing.T) {
	e := testEngine()
	workflowRules := []model.Rule{
		{
			Conditions:   []model.Condition{{Field: "totalValue", Operator: model.OpGreaterThan, Value: 1000.0}},
			Logic:        model.LogicAnd,
			ApproverRole: "manager",
		},
		{
			Conditions:   []model.Condition{{Field: "totalValue", Operator: model.OpGreaterThan, Value: 1200.0}},
			Logic:        model.LogicAnd,
			ApproverRole: "finance",
		},
		{
			Conditions:   []model.Condition{{Field: "totalValue", Operator: model.OpGreaterThan, Value: 9000.0}},
			Logic:        model.LogicAnd,
			ApproverRole: "cfo",
		},
	}

	roles := e.DetermineNextApprovers(workflowRules, snapshot())

	// Every matching rule contributes its role; this is not first-match-wins.
	assert.Equal(t, []string{"manager", "finance"}, roles)
}

func TestDetermineNextApproversDeduplicates(t *testing.T) {
	e := testEngine()
	cond := model.Condition{Field: "totalValue", Operator: model.OpGreaterThan, Value: 100.0}
	workflowRules := []model.Rule{
		{Conditions: []model.Condition{cond}, ApproverRole: "manager"},
		{Conditions: []model.Condition{cond}, ApproverRole: "manager"},
	}

	roles := e.DetermineNextApprovers(workflowRules, snapshot())
	assert.Equal(t, []string{"manager"}, roles)
}

func TestDetermineNextApproversNoMatch(t *testing.T) {
	e := testEngine()
	workflowRules := []model.Rule{
		{
			Conditions:   []model.Condition{{Field: "totalValue", Operator: model.OpGreaterThan, Value: 99999.0}},
			ApproverRole: "cfo",
		},
	}

	assert.Empty(t, e.DetermineNextApprovers(workflowRules, snapshot()))
}

func TestDetermineNextApproversSkipsEmptyConditionRules(t *testing.T) {
	e := testEngine()
	workflowRules := []model.Rule{{ApproverRole: "manager"}}
	assert.Empty(t, e.DetermineNextApprovers(workflowRules, snapshot()))
}

func TestDetermineNextApproversOrLogic(t *testing.T) {
	e := testEngine()
	workflowRules := []model.Rule{
		{
			Conditions: []model.Condition{
				{Field: "totalValue", Operator: model.OpGreaterThan, Value: 99999.0},
				{Field: "categoryId", Operator: model.OpEqual, Value: "cat-hw"},
			},
			Logic:        model.LogicOr,
			ApproverRole: "it",
		},
	}

	assert.Equal(t, []string{"it"}, e.DetermineNextApprovers(workflowRules, snapshot()))
}

// Package metrics exposes Prometheus collectors for the approval engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowsCreated counts created approval workflows.
	WorkflowsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pr_workflows_created_total",
		Help: "Number of approval workflows created.",
	})

	// RulesAdded counts rules appended to workflows.
	RulesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pr_workflow_rules_added_total",
		Help: "Number of rules appended to approval workflows.",
	})

	// ApprovalsInitialized counts approval ledger entries created by
	// initialization.
	ApprovalsInitialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pr_approvals_initialized_total",
		Help: "Number of pending approval records created.",
	})

	// DecisionsRecorded counts recorded approver decisions by outcome.
	DecisionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pr_decisions_recorded_total",
		Help: "Number of approver decisions recorded.",
	}, []string{"decision"})

	// PRsFinalized counts PRs reaching a terminal status.
	PRsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pr_finalized_total",
		Help: "Number of purchase requisitions finalized.",
	}, []string{"status"})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCommitted counts checkout attempts that reached Committed.
	OrdersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_commits_total",
		Help: "Checkout attempts committed successfully",
	})

	// OrderConflicts counts attempts aborted with an insufficient-stock report.
	OrderConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_commit_conflicts_total",
		Help: "Checkout attempts aborted due to insufficient stock",
	})

	// OrderBusy counts attempts that exhausted the lock retry budget.
	OrderBusy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_commit_busy_total",
		Help: "Checkout attempts rejected because product locks stayed busy",
	})

	// IntegrityViolations counts defensive invariant failures. Nonzero
	// values mean a logic defect and warrant investigation.
	IntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_integrity_violations_total",
		Help: "Stock invariant violations caught before persisting",
	})

	// MovementsApplied counts persisted ledger movements by type.
	MovementsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_applied_total",
		Help: "Stock movements appended to the ledger",
	}, []string{"type"})
)

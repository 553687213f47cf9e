package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-derives ledger invariants and reports drift.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskDashboardWarmup rebuilds the cached dashboard and reports.
	TaskDashboardWarmup = "reports:dashboard_warmup"
)

// IntegrityScanPayload bounds one integrity scan run.
type IntegrityScanPayload struct {
	// MaxEntries caps how many of the most recent entries are re-checked
	// line by line; zero means all.
	MaxEntries int `json:"maxEntries"`
}

// NewIntegrityScanTask constructs an Asynq task for the ledger scan.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// NewDashboardWarmupTask constructs an Asynq task for the report warmup.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, nil)
}

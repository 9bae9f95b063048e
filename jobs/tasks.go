package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the aggregate integrity scan.
	TaskLedgerIntegrity = "ledger:integrity-scan"
	// TaskStockVerify is the task type for the stock snapshot verification.
	TaskStockVerify = "stock:snapshot-verify"
)

// IntegrityPayload narrows an integrity scan to one account kind when set.
type IntegrityPayload struct {
	Kind string `json:"kind,omitempty"`
}

// NewLedgerIntegrityTask constructs an integrity scan task.
func NewLedgerIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewStockVerifyTask constructs a stock verification task.
func NewStockVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskStockVerify, nil)
}

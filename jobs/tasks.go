package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan recomputes stock balances from ledger history.
	TaskLedgerIntegrityScan = "stock:integrity_scan"
	// TaskBalanceWarmup primes the balance cache for known pairs.
	TaskBalanceWarmup = "stock:balance_warmup"
)

// LedgerIntegrityPayload carries scheduling metadata for the scan.
type LedgerIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the integrity scan.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, body, asynq.Queue(QueueDefault)), nil
}

// BalanceWarmupPayload carries scheduling metadata for the warmup.
type BalanceWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBalanceWarmupTask constructs an Asynq task for the cache warmup.
func NewBalanceWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BalanceWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceWarmup, body, asynq.Queue(QueueDefault)), nil
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRekapWarmup rebuilds cached rekap reports ahead of the first visitor.
	TaskRekapWarmup = "rekap:warmup"
	// RekapWarmupCron runs the warmup every half hour.
	RekapWarmupCron = "*/30 * * * *"
)

// RekapWarmupPayload selects what to warm. Empty tables means every table
// of the catalogue; empty dates mean month-to-date.
type RekapWarmupPayload struct {
	Tables []string `json:"tables,omitempty"`
	Start  string   `json:"start,omitempty"`
	End    string   `json:"end,omitempty"`
}

// NewRekapWarmupTask constructs an Asynq task.
func NewRekapWarmupTask(payload RekapWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRekapWarmup, data, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

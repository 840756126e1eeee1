package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsCleanup purges expired session audit rows.
	TaskSessionsCleanup = "sessions:cleanup"
	// TaskAuditRetention trims audit rows beyond the retention window.
	TaskAuditRetention = "audit:retention"
)

// SessionsCleanupPayload bounds the cleanup run.
type SessionsCleanupPayload struct {
	Before time.Time `json:"before"`
}

// NewSessionsCleanupTask constructs an Asynq task for session cleanup. A
// zero Before means "now at processing time".
func NewSessionsCleanupTask(before time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsCleanupPayload{Before: before})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsCleanup, data), nil
}

// AuditRetentionPayload carries the retention window.
type AuditRetentionPayload struct {
	RetainFor time.Duration `json:"retain_for"`
}

// NewAuditRetentionTask constructs an Asynq task for audit trimming.
func NewAuditRetentionTask(retainFor time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditRetentionPayload{RetainFor: retainFor})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

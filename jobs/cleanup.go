package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fixflow-app/fixflow/internal/auth"
	jobmetrics "github.com/fixflow-app/fixflow/internal/jobs"
	"github.com/fixflow-app/fixflow/internal/shared"
)

// SessionsCleanupJob removes expired session rows.
type SessionsCleanupJob struct {
	Auth    *auth.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes a sessions:cleanup task.
func (j SessionsCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track(TaskSessionsCleanup)
	var payload SessionsCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("sessions cleanup payload: %v: %w", err, asynq.SkipRetry))
	}
	before := payload.Before
	if before.IsZero() {
		before = time.Now()
	}
	deleted, err := j.Auth.CleanupExpiredSessions(ctx, before)
	if err != nil {
		return tracker.End(fmt.Errorf("cleanup expired sessions: %w", err))
	}
	j.Logger.Info("sessions cleanup complete",
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
	)
	return tracker.End(nil)
}

// AuditRetentionJob trims audit rows beyond the retention window.
type AuditRetentionJob struct {
	Audit   *shared.AuditLogger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes an audit:retention task.
func (j AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track(TaskAuditRetention)
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("audit retention payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.RetainFor <= 0 {
		return tracker.End(fmt.Errorf("audit retention window must be positive: %w", asynq.SkipRetry))
	}
	deleted, err := j.Audit.Cleanup(ctx, payload.RetainFor)
	if err != nil {
		return tracker.End(fmt.Errorf("trim audit logs: %w", err))
	}
	j.Logger.Info("audit retention complete",
		slog.Int64("deleted", deleted),
		slog.Duration("retain_for", payload.RetainFor),
	)
	return tracker.End(nil)
}

package app

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/shared"
)

// AuditDenialRecorder adapts the shared audit logger to the pipeline's
// denial hook. Denied permissions land only here and in slog, never in
// response bodies.
type AuditDenialRecorder struct {
	Audit  *shared.AuditLogger
	Logger *slog.Logger
}

// RecordDenial persists an authorization denial.
func (a AuditDenialRecorder) RecordDenial(ctx context.Context, p authz.Principal, perm authz.Permission, route string) {
	if a.Audit == nil {
		return
	}
	err := a.Audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		TenantID: p.TenantID,
		Action:   shared.AuditActionPermissionDenied,
		Entity:   "route",
		EntityID: route,
		Meta: map[string]any{
			"role":       string(p.Role),
			"permission": string(perm),
			"user_id":    strconv.FormatInt(p.UserID, 10),
		},
	})
	if err != nil && a.Logger != nil {
		a.Logger.Warn("record denial", slog.Any("error", err))
	}
}

var _ authz.DenialRecorder = AuditDenialRecorder{}

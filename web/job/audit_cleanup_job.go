// Package job provides the scheduled maintenance jobs of the portal.
package job

import (
	"context"
	"time"

	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/service"
)

const jobTimeout = 5 * time.Minute

// AuditCleanupJob deletes audit rows past the retention period.
type AuditCleanupJob struct {
	auditService  *service.AuditLogService
	retentionDays int
}

func NewAuditCleanupJob(audit *service.AuditLogService, retentionDays int) *AuditCleanupJob {
	return &AuditCleanupJob{auditService: audit, retentionDays: retentionDays}
}

func (j *AuditCleanupJob) Run() {
	if j.retentionDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.auditService.CleanOldLogs(ctx, j.retentionDays)
	if err != nil {
		logger.Warning("Failed to clean old audit logs:", err)
		return
	}
	logger.Debugf("Audit cleanup removed %d rows (retention: %d days)", n, j.retentionDays)
}

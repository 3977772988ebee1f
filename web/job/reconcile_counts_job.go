package job

import (
	"context"

	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/service"
)

// ReconcileCountsJob repairs advisory registered counts that a failed
// best-effort refresh left stale.
type ReconcileCountsJob struct {
	eventService *service.EventService
}

func NewReconcileCountsJob(events *service.EventService) *ReconcileCountsJob {
	return &ReconcileCountsJob{eventService: events}
}

func (j *ReconcileCountsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.eventService.ReconcileRegisteredCounts(ctx)
	if err != nil {
		logger.Warning("Failed to reconcile registered counts:", err)
		return
	}
	if n > 0 {
		logger.Infof("Reconciled registered count of %d events", n)
	}
}

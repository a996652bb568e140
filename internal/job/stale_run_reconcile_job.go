package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/repo"
)

// StaleRunReconcileJob sweeps sync_log rows stuck in running, which only
// happens when the process died mid-run. Marking them failed keeps the ledger
// honest and unblocks operators watching run history.
type StaleRunReconcileJob struct {
	runs       *repo.SyncLogRepo
	staleAfter time.Duration
}

func NewStaleRunReconcileJob(runs *repo.SyncLogRepo, staleAfter time.Duration) *StaleRunReconcileJob {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}
	return &StaleRunReconcileJob{runs: runs, staleAfter: staleAfter}
}

func (j *StaleRunReconcileJob) Name() string {
	return "stale_run_reconcile"
}

func (j *StaleRunReconcileJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.staleAfter).Unix()
	count, err := j.runs.MarkStaleRunning(ctx, cutoff)
	if err != nil {
		return err
	}
	if count > 0 {
		logutil.GetLogger(ctx).Warn("stale sync runs marked failed", zap.Int64("count", count))
	}
	return nil
}

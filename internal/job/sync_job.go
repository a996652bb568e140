package job

import (
	"context"

	"github.com/xxxsen/kbase/internal/model"
)

type syncRunner interface {
	RunFull(ctx context.Context) (*model.SyncRun, error)
}

// SyncJob runs the full indexing pipeline on schedule. The scheduler's
// skip-if-running guard is the only concurrency control the pipeline relies
// on.
type SyncJob struct {
	ingest syncRunner
}

func NewSyncJob(ingest syncRunner) *SyncJob {
	return &SyncJob{ingest: ingest}
}

func (j *SyncJob) Name() string {
	return "knowledge_sync"
}

func (j *SyncJob) Run(ctx context.Context) error {
	_, err := j.ingest.RunFull(ctx)
	return err
}

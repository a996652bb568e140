package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/dbutil"
)

type SyncLogRepo struct {
	db *sql.DB
}

func NewSyncLogRepo(db *sql.DB) *SyncLogRepo {
	return &SyncLogRepo{db: db}
}

// Start opens a new run in running state and returns its id.
func (r *SyncLogRepo) Start(ctx context.Context, sourceRevision string) (int64, error) {
	const query = `
		INSERT INTO sync_log (sync_started_at, status, github_commit_sha)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, time.Now().Unix(), model.SyncStatusRunning, sourceRevision).Scan(&id)
	return id, err
}

// Complete writes the single terminal update for a run. It is never called
// twice for the same id by the pipeline.
func (r *SyncLogRepo) Complete(ctx context.Context, id int64, stats model.SyncStats, status string, errorMessage string) error {
	const query = `
		UPDATE sync_log
		SET sync_completed_at = $1,
			status = $2,
			files_processed = $3,
			chunks_created = $4,
			vectors_uploaded = $5,
			error_message = NULLIF($6, '')
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		time.Now().Unix(), status,
		stats.FilesProcessed, stats.ChunksCreated, stats.VectorsUploaded,
		errorMessage, id,
	)
	return err
}

// MarkFailed is the terminal update for a run aborted by a pipeline-level
// fatal error before per-file processing finished.
func (r *SyncLogRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	const query = `
		UPDATE sync_log
		SET sync_completed_at = $1, status = $2, error_message = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, time.Now().Unix(), model.SyncStatusFailed, errorMessage, id)
	return err
}

// MarkStaleRunning reconciles runs that crashed before their terminal update:
// anything still running that started before the cutoff is marked failed.
func (r *SyncLogRepo) MarkStaleRunning(ctx context.Context, cutoff int64) (int64, error) {
	const query = `
		UPDATE sync_log
		SET sync_completed_at = $1, status = $2, error_message = 'marked failed by stale-run reconciliation'
		WHERE status = $3 AND sync_started_at < $4
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().Unix(), model.SyncStatusFailed, model.SyncStatusRunning, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRecent returns recent runs, newest first, optionally filtered by status.
func (r *SyncLogRepo) ListRecent(ctx context.Context, status string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	where := map[string]interface{}{
		"_orderby": "id desc",
		"_limit":   []uint{0, uint(limit)},
	}
	if status != "" {
		where["status"] = status
	}
	fields := []string{
		"id", "sync_started_at", "sync_completed_at", "status", "github_commit_sha",
		"files_processed", "chunks_created", "vectors_uploaded", "error_message",
	}
	sqlStr, args, err := builder.BuildSelect("sync_log", where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []model.SyncRun
	for rows.Next() {
		var run model.SyncRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Status, &run.SourceRevision,
			&run.FilesProcessed, &run.ChunksCreated, &run.VectorsUploaded, &run.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ListVectorIDsByDocument returns the vector ids currently owned by a
// document. The dual-store writer uses this to clear stale index entries
// before writing a new generation.
func (r *ChunkRepo) ListVectorIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	const query = `SELECT vector_id FROM chunks WHERE document_id = $1`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetTextByIDs resolves chunk text for a set of chunk ids. Missing ids are
// simply absent from the result map.
func (r *ChunkRepo) GetTextByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, text FROM chunks WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]string, len(ids))
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		result[id] = text
	}
	return result, rows.Err()
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	return count, err
}

func (r *ChunkRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

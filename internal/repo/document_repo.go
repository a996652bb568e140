package repo

import (
	"context"
	"database/sql"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, file_path, file_name, folder, topic, file_type, content_hash, size_bytes, github_sha, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			file_name = EXCLUDED.file_name,
			folder = EXCLUDED.folder,
			topic = EXCLUDED.topic,
			file_type = EXCLUDED.file_type,
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes,
			github_sha = EXCLUDED.github_sha,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.FilePath, doc.FileName, doc.Folder, doc.Topic,
		doc.FileType, doc.ContentHash, doc.SizeBytes, doc.SourceSHA, doc.UpdatedAt,
	)
	return err
}

// ReplaceWithChunks deletes the document's existing chunk rows, upserts the
// document and bulk-inserts the new chunks in one transaction. Vector-index
// writes stay outside; the two stores are separate systems.
func (r *DocumentRepo) ReplaceWithChunks(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return err
	}
	const upsertDoc = `
		INSERT INTO documents (id, file_path, file_name, folder, topic, file_type, content_hash, size_bytes, github_sha, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			file_name = EXCLUDED.file_name,
			folder = EXCLUDED.folder,
			topic = EXCLUDED.topic,
			file_type = EXCLUDED.file_type,
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes,
			github_sha = EXCLUDED.github_sha,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsertDoc,
		doc.ID, doc.FilePath, doc.FileName, doc.Folder, doc.Topic,
		doc.FileType, doc.ContentHash, doc.SizeBytes, doc.SourceSHA, doc.UpdatedAt,
	); err != nil {
		return err
	}
	const insertChunk = `
		INSERT INTO chunks (id, document_id, chunk_index, text, word_count, vector_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insertChunk,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Text, chunk.WordCount, chunk.VectorID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	const query = `
		SELECT id, file_path, file_name, folder, topic, file_type, content_hash, size_bytes, github_sha, updated_at
		FROM documents WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.FilePath, &doc.FileName, &doc.Folder, &doc.Topic,
		&doc.FileType, &doc.ContentHash, &doc.SizeBytes, &doc.SourceSHA, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

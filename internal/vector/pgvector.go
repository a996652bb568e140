package vector

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

// PGIndex keeps vectors in a postgres table with the pgvector extension.
// Score is cosine similarity (1 - cosine distance).
type PGIndex struct {
	db *sql.DB
}

func NewPGIndex(db *sql.DB) *PGIndex {
	return &PGIndex{db: db}
}

func (i *PGIndex) Upsert(ctx context.Context, records []Record) error {
	const query = `
		INSERT INTO vector_records (id, embedding, document_id, file_path, topic, folder, chunk_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			document_id = EXCLUDED.document_id,
			file_path = EXCLUDED.file_path,
			topic = EXCLUDED.topic,
			folder = EXCLUDED.folder,
			chunk_index = EXCLUDED.chunk_index
	`
	for _, rec := range records {
		if _, err := i.db.ExecContext(ctx, query,
			rec.ID,
			pgvector.NewVector(rec.Embedding),
			rec.Metadata.DocumentID,
			rec.Metadata.FilePath,
			rec.Metadata.Topic,
			rec.Metadata.Folder,
			rec.Metadata.ChunkIndex,
		); err != nil {
			return err
		}
	}
	return nil
}

func (i *PGIndex) Query(ctx context.Context, embedding []float32, topK int, topic string) ([]Match, error) {
	query := `
		SELECT id, 1 - (embedding <=> $1) AS score, document_id, file_path, topic, folder, chunk_index
		FROM vector_records
	`
	args := []interface{}{pgvector.NewVector(embedding)}
	if topic != "" {
		query += ` WHERE topic = $2 ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, topic, topK)
	} else {
		query += ` ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, topK)
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score, &m.Metadata.DocumentID, &m.Metadata.FilePath,
			&m.Metadata.Topic, &m.Metadata.Folder, &m.Metadata.ChunkIndex); err != nil {
			return nil, err
		}
		m.Metadata.ChunkID = m.ID
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (i *PGIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM vector_records WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	_, err = i.db.ExecContext(ctx, query, args...)
	return err
}

package vector

import "context"

// Metadata is the light denormalized projection stored next to each vector.
// It deliberately excludes the chunk text; full text lives only in the
// metadata store and is joined back by id at query time.
type Metadata struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	Topic      string `json:"topic"`
	Folder     string `json:"folder"`
	ChunkIndex int    `json:"chunk_index"`
}

type Record struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
}

type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Index is the contract the pipeline needs from a vector store. Query returns
// matches in descending similarity order; topic, when non-empty, pre-filters
// before the topK cut.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, embedding []float32, topK int, topic string) ([]Match, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

package model

// Chunk is the unit of embedding and retrieval. VectorID always equals ID;
// the shared key is what joins the metadata store and the vector index.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
	VectorID   string `json:"vector_id"`
}

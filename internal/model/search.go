package model

// SearchMatch is one retrieval hit after score filtering, with the chunk text
// joined back in from the metadata store.
type SearchMatch struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	FilePath   string  `json:"file_path"`
	Topic      string  `json:"topic"`
	Folder     string  `json:"folder"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

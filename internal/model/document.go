package model

// Document is one indexed snapshot of a source file. The id is derived from
// the content hash alone, so byte-identical files at different paths share a
// single row and the most recently processed path wins.
type Document struct {
	ID          string `json:"id"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
	Folder      string `json:"folder"`
	Topic       string `json:"topic"`
	FileType    string `json:"file_type"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
	SourceSHA   string `json:"github_sha"`
	UpdatedAt   int64  `json:"updated_at"`
}

package model

const (
	SyncStatusRunning             = "running"
	SyncStatusCompleted           = "completed"
	SyncStatusCompletedWithErrors = "completed_with_errors"
	SyncStatusFailed              = "failed"
)

// SyncRun is the audit row for one indexing invocation. It is written once at
// start and mutated exactly once at the end; rows are never deleted.
type SyncRun struct {
	ID              int64   `json:"id"`
	StartedAt       int64   `json:"sync_started_at"`
	CompletedAt     *int64  `json:"sync_completed_at"`
	Status          string  `json:"status"`
	SourceRevision  string  `json:"github_commit_sha"`
	FilesProcessed  int     `json:"files_processed"`
	ChunksCreated   int     `json:"chunks_created"`
	VectorsUploaded int     `json:"vectors_uploaded"`
	ErrorMessage    *string `json:"error_message"`
}

// SyncStats aggregates per-file outcomes in memory during a run and is
// flushed once at completion.
type SyncStats struct {
	FilesProcessed  int
	FilesFailed     int
	ChunksCreated   int
	VectorsUploaded int
	Errors          []string
}

func (s *SyncStats) AddFileResult(chunks, vectors int) {
	s.FilesProcessed++
	s.ChunksCreated += chunks
	s.VectorsUploaded += vectors
}

func (s *SyncStats) AddFileError(path string, err error) {
	s.FilesFailed++
	s.Errors = append(s.Errors, path+": "+err.Error())
}

// Status derives the terminal run status from the per-file outcomes. A run
// with zero files is still a completed run.
func (s *SyncStats) Status() string {
	if s.FilesFailed > 0 {
		return SyncStatusCompletedWithErrors
	}
	return SyncStatusCompleted
}

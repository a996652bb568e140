package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/chunker"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/ident"
	"github.com/xxxsen/kbase/internal/source"
	"github.com/xxxsen/kbase/internal/vector"
)

// DocumentStore is the slice of the metadata store the dual-store writer
// needs: the transactional delete-chunks / upsert-document / insert-chunks
// replacement.
type DocumentStore interface {
	ReplaceWithChunks(ctx context.Context, doc *model.Document, chunks []*model.Chunk) error
}

type ChunkStore interface {
	ListVectorIDsByDocument(ctx context.Context, documentID string) ([]string, error)
}

type SyncLedger interface {
	Start(ctx context.Context, sourceRevision string) (int64, error)
	Complete(ctx context.Context, id int64, stats model.SyncStats, status string, errorMessage string) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
}

type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type IngestConfig struct {
	MaxFiles  int
	MaxChunks int
}

// IngestService runs the indexing pipeline: enumerate, chunk, embed, write
// both stores, record the run in the sync ledger. One run at a time is the
// deployment contract; there is no internal per-document lock.
type IngestService struct {
	src      source.Source
	docs     DocumentStore
	chunks   ChunkStore
	index    vector.Index
	embedder DocumentEmbedder
	chunker  *chunker.Chunker
	syncLog  SyncLedger
	cfg      IngestConfig
}

func NewIngestService(
	src source.Source,
	docs DocumentStore,
	chunks ChunkStore,
	index vector.Index,
	embedder DocumentEmbedder,
	ck *chunker.Chunker,
	syncLog SyncLedger,
	cfg IngestConfig,
) *IngestService {
	return &IngestService{
		src:      src,
		docs:     docs,
		chunks:   chunks,
		index:    index,
		embedder: embedder,
		chunker:  ck,
		syncLog:  syncLog,
		cfg:      cfg,
	}
}

// RunFull enumerates every file in the source and indexes them all.
// Enumeration failure is pipeline-fatal and happens before a run is opened.
func (s *IngestService) RunFull(ctx context.Context) (*model.SyncRun, error) {
	refs, revision, err := s.src.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate source: %w", err)
	}
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		paths = append(paths, ref.Path)
	}
	return s.RunPaths(ctx, revision, paths)
}

// RunPaths indexes the given file paths against the current source revision.
// Every invocation leaves exactly one terminal sync_log row, even on partial
// failure.
func (s *IngestService) RunPaths(ctx context.Context, revision string, paths []string) (*model.SyncRun, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("revision", revision))

	ledger, ok := s.openLedger(ctx, revision)
	if !ok {
		return nil, fmt.Errorf("open sync run")
	}

	if s.cfg.MaxFiles > 0 && len(paths) > s.cfg.MaxFiles {
		logger.Warn("file limit reached, truncating run",
			zap.Int("files", len(paths)), zap.Int("max_files", s.cfg.MaxFiles))
		paths = paths[:s.cfg.MaxFiles]
	}

	startedAt := time.Now().Unix()
	var stats model.SyncStats
	for _, filePath := range paths {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-run: record the run as failed instead of letting
			// it sit in running until the stale reconciler picks it up.
			cleanup := context.WithoutCancel(ctx)
			if ferr := s.syncLog.MarkFailed(cleanup, ledger, err.Error()); ferr != nil {
				logger.Error("mark sync run failed", zap.Error(ferr))
			}
			return nil, fmt.Errorf("sync run aborted: %w", err)
		}
		file, err := s.src.FetchFile(ctx, filePath)
		if err != nil {
			logger.Error("fetch file failed", zap.String("path", filePath), zap.Error(err))
			stats.AddFileError(filePath, err)
			continue
		}
		chunksCreated, vectorsUploaded, err := s.processFile(ctx, file, revision, &stats)
		if err != nil {
			logger.Error("process file failed", zap.String("path", filePath), zap.Error(err))
			stats.AddFileError(filePath, err)
			continue
		}
		stats.AddFileResult(chunksCreated, vectorsUploaded)
	}

	status := stats.Status()
	errorSummary := strings.Join(stats.Errors, "; ")
	if err := s.syncLog.Complete(ctx, ledger, stats, status, errorSummary); err != nil {
		logger.Error("complete sync run failed", zap.Error(err))
	}
	logger.Info("sync run finished",
		zap.Int64("run_id", ledger),
		zap.String("status", status),
		zap.Int("files_processed", stats.FilesProcessed),
		zap.Int("files_failed", stats.FilesFailed),
		zap.Int("chunks_created", stats.ChunksCreated),
		zap.Int("vectors_uploaded", stats.VectorsUploaded),
	)

	completedAt := time.Now().Unix()
	run := &model.SyncRun{
		ID:              ledger,
		StartedAt:       startedAt,
		CompletedAt:     &completedAt,
		Status:          status,
		SourceRevision:  revision,
		FilesProcessed:  stats.FilesProcessed,
		ChunksCreated:   stats.ChunksCreated,
		VectorsUploaded: stats.VectorsUploaded,
	}
	if errorSummary != "" {
		run.ErrorMessage = &errorSummary
	}
	return run, nil
}

func (s *IngestService) openLedger(ctx context.Context, revision string) (int64, bool) {
	id, err := s.syncLog.Start(ctx, revision)
	if err != nil {
		logutil.GetLogger(ctx).Error("open sync run failed", zap.Error(err))
		return 0, false
	}
	return id, true
}

// processFile runs one file through chunking, identity, embedding and the
// dual-store write. An error means nothing of this file's new generation was
// written beyond what reindex itself reports.
func (s *IngestService) processFile(ctx context.Context, file *source.File, revision string, stats *model.SyncStats) (int, int, error) {
	doc := buildDocument(file, revision)
	logger := logutil.GetLogger(ctx).With(zap.String("path", file.Path), zap.String("doc_id", doc.ID))

	textChunks := s.chunker.Chunk(string(file.Content))
	if s.cfg.MaxChunks > 0 {
		remaining := s.cfg.MaxChunks - stats.ChunksCreated
		if remaining < 0 {
			remaining = 0
		}
		if len(textChunks) > remaining {
			logger.Warn("chunk limit reached, truncating file",
				zap.Int("chunks", len(textChunks)), zap.Int("kept", remaining))
			textChunks = textChunks[:remaining]
		}
	}

	chunks := make([]*model.Chunk, 0, len(textChunks))
	texts := make([]string, 0, len(textChunks))
	for _, tc := range textChunks {
		chunkID := ident.ChunkID(doc.ID, tc.ChunkIndex)
		chunks = append(chunks, &model.Chunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			ChunkIndex: tc.ChunkIndex,
			Text:       tc.Text,
			WordCount:  tc.WordCount,
			VectorID:   chunkID,
		})
		texts = append(texts, tc.Text)
	}
	logger.Debug("file chunked", zap.Int("chunks", len(chunks)))

	// Embed before touching either store: an embedding failure must leave
	// the previous generation fully intact.
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed chunks: %w", err)
	}

	vectorsUploaded, err := s.reindex(ctx, doc, chunks, embeddings)
	if err != nil {
		return 0, 0, err
	}
	return len(chunks), vectorsUploaded, nil
}

// reindex makes the metadata store and the vector index agree for one
// document:
//  1. look up the vector ids the document currently owns
//  2. delete them from the index (best-effort)
//  3. replace the document + chunk rows transactionally
//  4. upsert the new vector records
//
// Deleting stale vectors first prevents two generations coexisting under
// overlapping ids; committing metadata before the vector upsert means a
// failed upsert degrades to "no vector yet" instead of orphaned vectors.
func (s *IngestService) reindex(ctx context.Context, doc *model.Document, chunks []*model.Chunk, embeddings [][]float32) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID))

	staleIDs, err := s.chunks.ListVectorIDsByDocument(ctx, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("list stale vectors: %w", err)
	}
	if len(staleIDs) > 0 {
		if err := s.index.DeleteByIDs(ctx, staleIDs); err != nil {
			logger.Warn("delete stale vectors failed", zap.Int("count", len(staleIDs)), zap.Error(err))
		} else {
			logger.Debug("stale vectors deleted", zap.Int("count", len(staleIDs)))
		}
	}

	if err := s.docs.ReplaceWithChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("replace document: %w", err)
	}

	if len(chunks) == 0 {
		return 0, nil
	}
	records := make([]vector.Record, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, vector.Record{
			ID:        chunk.VectorID,
			Embedding: embeddings[i],
			Metadata: vector.Metadata{
				ChunkID:    chunk.ID,
				DocumentID: doc.ID,
				FilePath:   doc.FilePath,
				Topic:      doc.Topic,
				Folder:     doc.Folder,
				ChunkIndex: chunk.ChunkIndex,
			},
		})
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(records), nil
}

// buildDocument derives the content-addressed document row from a fetched
// file.
func buildDocument(file *source.File, revision string) *model.Document {
	contentHash := ident.HashContent(file.Content)
	folder := path.Dir(file.Path)
	if folder == "." || folder == "/" {
		folder = "root"
	}
	topic := "general"
	if idx := strings.Index(file.Path, "/"); idx > 0 {
		topic = file.Path[:idx]
	}
	fileName := path.Base(file.Path)
	fileType := strings.TrimPrefix(path.Ext(fileName), ".")
	if fileType == "" {
		fileType = "txt"
	}
	sha := file.SHA
	if sha == "" {
		sha = revision
	}
	return &model.Document{
		ID:          ident.DocumentID(contentHash),
		FilePath:    file.Path,
		FileName:    fileName,
		Folder:      folder,
		Topic:       topic,
		FileType:    fileType,
		ContentHash: contentHash,
		SizeBytes:   int64(len(file.Content)),
		SourceSHA:   sha,
		UpdatedAt:   time.Now().Unix(),
	}
}

package repo_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/repo"
	"github.com/xxxsen/kbase/test/testutil"
)

func testDoc(id string) *model.Document {
	return &model.Document{
		ID:          id,
		FilePath:    "guides/setup.md",
		FileName:    "setup.md",
		Folder:      "guides",
		Topic:       "guides",
		FileType:    "md",
		ContentHash: "hash-" + id,
		SizeBytes:   128,
		SourceSHA:   "sha-" + id,
		UpdatedAt:   time.Now().Unix(),
	}
}

func testChunks(docID string, n int) []*model.Chunk {
	chunks := make([]*model.Chunk, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s_chunk_%d", docID, i)
		chunks = append(chunks, &model.Chunk{
			ID:         id,
			DocumentID: docID,
			ChunkIndex: i,
			Text:       fmt.Sprintf("chunk %d text", i),
			WordCount:  3,
			VectorID:   id,
		})
	}
	return chunks
}

func cleanupDoc(t *testing.T, conn *sql.DB, docID string) {
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM documents WHERE id = $1`, docID)
	})
}

func TestDocumentReplaceWithChunks(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	ctx := context.Background()
	docs := repo.NewDocumentRepo(conn)
	chunks := repo.NewChunkRepo(conn)

	docID := fmt.Sprintf("doc_test_%d", time.Now().UnixNano())
	cleanupDoc(t, conn, docID)
	doc := testDoc(docID)

	require.NoError(t, docs.ReplaceWithChunks(ctx, doc, testChunks(docID, 3)))
	count, err := chunks.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// replacement fully supersedes the previous generation
	require.NoError(t, docs.ReplaceWithChunks(ctx, doc, testChunks(docID, 2)))
	count, err = chunks.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ids, err := chunks.ListVectorIDsByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, []string{docID + "_chunk_0", docID + "_chunk_1"}, ids)

	texts, err := chunks.GetTextByIDs(ctx, []string{docID + "_chunk_1", docID + "_chunk_99"})
	require.NoError(t, err)
	assert.Equal(t, "chunk 1 text", texts[docID+"_chunk_1"])
	_, ok := texts[docID+"_chunk_99"]
	assert.False(t, ok)
}

func TestDocumentGetNotFound(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	docs := repo.NewDocumentRepo(conn)

	_, err := docs.Get(context.Background(), "doc_does_not_exist")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSyncLogLifecycle(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	ctx := context.Background()
	runs := repo.NewSyncLogRepo(conn)

	id, err := runs.Start(ctx, "rev-abc")
	require.NoError(t, err)
	require.NotZero(t, id)
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM sync_log WHERE id = $1`, id)
	})

	stats := model.SyncStats{FilesProcessed: 4, FilesFailed: 1, ChunksCreated: 9, VectorsUploaded: 9}
	require.NoError(t, runs.Complete(ctx, id, stats, model.SyncStatusCompletedWithErrors, "a.md: boom"))

	listed, err := runs.ListRecent(ctx, model.SyncStatusCompletedWithErrors, 10)
	require.NoError(t, err)
	var found *model.SyncRun
	for i := range listed {
		if listed[i].ID == id {
			found = &listed[i]
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "rev-abc", found.SourceRevision)
	assert.Equal(t, 4, found.FilesProcessed)
	assert.Equal(t, 9, found.ChunksCreated)
	require.NotNil(t, found.ErrorMessage)
	assert.Equal(t, "a.md: boom", *found.ErrorMessage)
	require.NotNil(t, found.CompletedAt)
}

func TestSyncLogMarkStaleRunning(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	ctx := context.Background()
	runs := repo.NewSyncLogRepo(conn)

	id, err := runs.Start(ctx, "rev-stale")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM sync_log WHERE id = $1`, id)
	})

	// cutoff in the future, so the fresh run counts as stale
	count, err := runs.MarkStaleRunning(ctx, time.Now().Add(time.Minute).Unix())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	listed, err := runs.ListRecent(ctx, model.SyncStatusFailed, 10)
	require.NoError(t, err)
	var found bool
	for _, run := range listed {
		if run.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(conn)

	hash := fmt.Sprintf("hash-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM embedding_cache WHERE content_hash = $1`, hash)
	})

	_, ok, err := cache.Get(ctx, "m1", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName:   "m1",
		TaskType:    "RETRIEVAL_DOCUMENT",
		ContentHash: hash,
		Embedding:   testEmbedding(0.25),
		Ctime:       time.Now().Unix(),
	}))

	values, ok, err := cache.Get(ctx, "m1", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, values, 768)
	assert.InDelta(t, 0.25, values[0], 0.0001)
}

func testEmbedding(first float32) []float32 {
	values := make([]float32, 768)
	values[0] = first
	return values
}

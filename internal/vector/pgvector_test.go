package vector_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/vector"
	"github.com/xxxsen/kbase/test/testutil"
)

func axisEmbedding(axis int) []float32 {
	values := make([]float32, 768)
	values[axis] = 1
	return values
}

func testRecord(id string, axis int, topic string) vector.Record {
	return vector.Record{
		ID:        id,
		Embedding: axisEmbedding(axis),
		Metadata: vector.Metadata{
			ChunkID:    id,
			DocumentID: "doc_pg_test",
			FilePath:   topic + "/file.md",
			Topic:      topic,
			Folder:     topic,
			ChunkIndex: axis,
		},
	}
}

func TestPGIndexUpsertQueryDelete(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	ctx := context.Background()
	index := vector.NewPGIndex(conn)

	prefix := fmt.Sprintf("pgtest_%d", time.Now().UnixNano())
	ids := []string{prefix + "_a", prefix + "_b", prefix + "_c"}
	t.Cleanup(func() {
		_ = index.DeleteByIDs(context.Background(), ids)
	})

	records := []vector.Record{
		testRecord(ids[0], 0, "guides"),
		testRecord(ids[1], 1, "guides"),
		testRecord(ids[2], 2, "runbooks"),
	}
	require.NoError(t, index.Upsert(ctx, records))

	// exact-axis query: the matching record scores 1, orthogonal ones 0
	matches, err := index.Query(ctx, axisEmbedding(0), 100, "")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, ids[0], matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 0.0001)
	assert.Equal(t, "guides", matches[0].Metadata.Topic)
	assert.Equal(t, ids[0], matches[0].Metadata.ChunkID)

	// topic filter applies before the topK cut
	matches, err = index.Query(ctx, axisEmbedding(2), 100, "guides")
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "guides", m.Metadata.Topic)
		assert.NotEqual(t, ids[2], m.ID)
	}

	// upsert under the same id replaces, not duplicates
	require.NoError(t, index.Upsert(ctx, []vector.Record{testRecord(ids[0], 5, "guides")}))
	matches, err = index.Query(ctx, axisEmbedding(5), 100, "")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, ids[0], matches[0].ID)

	require.NoError(t, index.DeleteByIDs(ctx, ids[:2]))
	matches, err = index.Query(ctx, axisEmbedding(5), 100, "")
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, ids[0], m.ID)
		assert.NotEqual(t, ids[1], m.ID)
	}
}

func TestPGIndexDeleteEmptyIsNoop(t *testing.T) {
	conn, closer := testutil.OpenTestDB(t)
	defer closer()
	index := vector.NewPGIndex(conn)
	require.NoError(t, index.DeleteByIDs(context.Background(), nil))
}

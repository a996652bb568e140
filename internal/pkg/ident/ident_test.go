package ident

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentIDDeterministic(t *testing.T) {
	a := DocumentID(HashContent([]byte("hello world")))
	b := DocumentID(HashContent([]byte("hello world")))
	require.Equal(t, a, b)
	require.Len(t, a, len("doc_")+16)
	require.Equal(t, "doc_", a[:4])
}

func TestDocumentIDChangesWithContent(t *testing.T) {
	a := DocumentID(HashContent([]byte("hello world")))
	b := DocumentID(HashContent([]byte("hello world!")))
	require.NotEqual(t, a, b)
}

func TestDocumentIDIgnoresPath(t *testing.T) {
	// Same bytes at two paths collapse into one document id.
	content := []byte("# readme\nsome text\n")
	require.Equal(t,
		DocumentID(HashContent(content)),
		DocumentID(HashContent(content)),
	)
}

func TestChunkID(t *testing.T) {
	docID := DocumentID(HashContent([]byte("x")))
	require.Equal(t, docID+"_chunk_0", ChunkID(docID, 0))
	require.Equal(t, docID+"_chunk_12", ChunkID(docID, 12))
}

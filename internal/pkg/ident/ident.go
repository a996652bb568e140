package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashContent returns the full hex sha256 digest of the document content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the content-addressed document id from the full content
// hash. Identity depends on content only, never on path.
func DocumentID(contentHash string) string {
	return "doc_" + contentHash[:16]
}

// ChunkID builds the id of chunk index within a document. The vector record
// in the index always reuses this id.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

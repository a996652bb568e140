package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/vector"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
	defaultMinScore    = 0.7

	missingTextPlaceholder = "[Text not found]"
)

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type ChunkTextStore interface {
	GetTextByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type SearchRequest struct {
	Query    string
	Limit    int
	Topic    string
	MinScore float32
}

// SearchService answers semantic queries: embed the query, rank against the
// vector index, filter by score, join chunk text back from the metadata
// store.
type SearchService struct {
	embedder QueryEmbedder
	index    vector.Index
	chunks   ChunkTextStore
}

func NewSearchService(embedder QueryEmbedder, index vector.Index, chunks ChunkTextStore) *SearchService {
	return &SearchService{embedder: embedder, index: index, chunks: chunks}
}

// Search runs one retrieval. Limit defaults to 5 and caps at 20; MinScore
// defaults to 0.7 when unset. Results keep the index's similarity order, only
// trailing low-score matches are cut.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]model.SearchMatch, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", errors.ErrInvalid)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	embedding, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Query(ctx, embedding, limit, req.Topic)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	kept := make([]vector.Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minScore {
			continue
		}
		kept = append(kept, hit)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(kept))
	for _, hit := range kept {
		ids = append(ids, hit.Metadata.ChunkID)
	}
	texts, err := s.chunks.GetTextByIDs(ctx, ids)
	if err != nil {
		// A degraded answer beats no answer: matches still carry file paths
		// and scores even when the text join is down.
		logutil.GetLogger(ctx).Warn("join chunk text failed", zap.Error(err))
		texts = nil
	}

	matches := make([]model.SearchMatch, 0, len(kept))
	for _, hit := range kept {
		text, ok := texts[hit.Metadata.ChunkID]
		if !ok {
			text = missingTextPlaceholder
		}
		matches = append(matches, model.SearchMatch{
			ChunkID:    hit.Metadata.ChunkID,
			DocumentID: hit.Metadata.DocumentID,
			FilePath:   hit.Metadata.FilePath,
			Topic:      hit.Metadata.Topic,
			Folder:     hit.Metadata.Folder,
			ChunkIndex: hit.Metadata.ChunkIndex,
			Score:      hit.Score,
			Text:       text,
		})
	}
	return matches, nil
}

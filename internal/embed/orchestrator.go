package embed

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/kbase/internal/ai"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = 50 * time.Millisecond
)

// Orchestrator turns chunk texts into vectors in bounded groups. Calls within
// a group run concurrently but the output order always matches the input
// order. Any single failure fails the whole batch; retries belong to the
// caller, not here.
type Orchestrator struct {
	embedder   ai.IEmbedder
	batchSize  int
	batchDelay time.Duration
}

func NewOrchestrator(embedder ai.IEmbedder, batchSize int, batchDelay time.Duration) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultBatchDelay
	}
	return &Orchestrator{
		embedder:   embedder,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

func (o *Orchestrator) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embedAll(ctx, texts, ai.TaskRetrievalDocument)
}

func (o *Orchestrator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return o.embedder.Embed(ctx, text, ai.TaskRetrievalQuery)
}

func (o *Orchestrator) ModelName() string {
	return o.embedder.ModelName()
}

func (o *Orchestrator) embedAll(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	logger := logutil.GetLogger(ctx)
	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		eg, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < end; idx++ {
			eg.Go(func() error {
				values, err := o.embedder.Embed(gctx, texts[idx], taskType)
				if err != nil {
					return err
				}
				results[idx] = values
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		logger.Debug("embedding group completed",
			zap.Int("from", start+1),
			zap.Int("to", end),
			zap.Int("total", len(texts)),
		)
		// small pause between groups to stay under provider rate limits
		if end < len(texts) && o.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.batchDelay):
			}
		}
	}
	return results, nil
}

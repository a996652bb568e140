package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/pkg/response"
)

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	documents Counter
	chunks    Counter
	version   string
}

func NewHealthHandler(documents Counter, chunks Counter, version string) *HealthHandler {
	return &HealthHandler{documents: documents, chunks: chunks, version: version}
}

// Check reports liveness plus index size. Count failures degrade the payload
// instead of failing the probe; the store being briefly unreachable should
// not flap the service.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	docCount, err := h.documents.Count(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("count documents failed", zap.Error(err))
		docCount = -1
	}
	chunkCount, err := h.chunks.Count(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("count chunks failed", zap.Error(err))
		chunkCount = -1
	}
	response.Success(c, gin.H{
		"status":    "ok",
		"version":   h.version,
		"documents": docCount,
		"chunks":    chunkCount,
	})
}

package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/response"
)

type RunLister interface {
	ListRecent(ctx context.Context, status string, limit int) ([]model.SyncRun, error)
}

// SyncHandler exposes the admin surface: trigger a full sync, inspect the run
// ledger.
type SyncHandler struct {
	ingest SyncRunner
	runs   RunLister
}

func NewSyncHandler(ingest SyncRunner, runs RunLister) *SyncHandler {
	return &SyncHandler{ingest: ingest, runs: runs}
}

func (h *SyncHandler) Trigger(c *gin.Context) {
	run, err := h.ingest.RunFull(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, run)
}

func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := 20
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	runs, err := h.runs.ListRecent(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, runs)
}

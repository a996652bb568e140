package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/errcode"
	"github.com/xxxsen/kbase/internal/pkg/response"
	"github.com/xxxsen/kbase/internal/source"
)

type SyncRunner interface {
	RunFull(ctx context.Context) (*model.SyncRun, error)
	RunPaths(ctx context.Context, revision string, paths []string) (*model.SyncRun, error)
}

type pushPayload struct {
	After   string `json:"after"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
	} `json:"commits"`
}

// WebhookHandler turns repository push events into incremental sync runs.
// Requests are authenticated with the HMAC signature the forge computes over
// the raw body.
type WebhookHandler struct {
	ingest SyncRunner
	filter *source.Filter
	secret string
}

func NewWebhookHandler(ingest SyncRunner, filter *source.Filter, secret string) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, filter: filter, secret: secret}
}

func (h *WebhookHandler) HandlePush(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "read body failed")
		return
	}
	if !h.verifySignature(body, c.GetHeader("X-Hub-Signature-256")) {
		response.Error(c, errcode.ErrInvalid, "invalid signature")
		return
	}

	event := c.GetHeader("X-GitHub-Event")
	switch event {
	case "ping":
		response.Success(c, gin.H{"message": "pong"})
		return
	case "push":
	default:
		response.Success(c, gin.H{"message": "ignored event: " + event})
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid payload")
		return
	}
	paths := h.changedTextFiles(payload)
	ctx := c.Request.Context()
	if len(paths) == 0 {
		logutil.GetLogger(ctx).Info("push event carried no indexable files", zap.String("revision", payload.After))
		response.Success(c, gin.H{"message": "no indexable files changed"})
		return
	}

	run, err := h.ingest.RunPaths(ctx, payload.After, paths)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, run)
}

// changedTextFiles collects added and modified paths across every commit in
// the push, deduplicated and filtered down to indexable text files.
func (h *WebhookHandler) changedTextFiles(payload pushPayload) []string {
	seen := map[string]struct{}{}
	var paths []string
	add := func(list []string) {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if h.filter.IsTextFile(p) {
				paths = append(paths, p)
			}
		}
	}
	for _, commit := range payload.Commits {
		add(commit.Added)
		add(commit.Modified)
	}
	return paths
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if h.secret == "" {
		// no secret configured: accept, the route should then sit behind
		// network-level protection
		return true
	}
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header[len(prefix):]))
}

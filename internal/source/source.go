package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/kbase/internal/config"
)

// FileRef is one enumerated candidate file, before content is fetched.
type FileRef struct {
	Path string
	SHA  string
	Size int64
}

// File is a fetched file ready for indexing.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// Source enumerates and fetches files from a document repository. The
// pipeline treats it as an external collaborator: enumeration failure is a
// pipeline-fatal error, per-file fetch failure fails only that file.
type Source interface {
	Name() string
	// ListFiles returns candidate files (already filtered) and the source
	// revision the listing was taken at.
	ListFiles(ctx context.Context) ([]FileRef, string, error)
	// FetchFile returns the content of one file at the current revision.
	FetchFile(ctx context.Context, path string) (*File, error)
}

type Factory func(args interface{}, filter *Filter) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.SourceConfig, filter *Filter) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("source.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
	return factory(cfg.Data, filter)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("source config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode source config: %w", err)
	}
	return nil
}

package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xxxsen/kbase/internal/pkg/ident"
)

type filesystemConfig struct {
	Dir string `json:"dir"`
}

// filesystemSource walks a local directory. Useful for manual ingest runs and
// for exercising the pipeline without network access. The "revision" is the
// hash of the sorted path listing, so re-listing unchanged content is stable.
type filesystemSource struct {
	dir    string
	filter *Filter
}

func init() {
	Register("filesystem", createFilesystemSource)
}

func createFilesystemSource(args interface{}, filter *Filter) (Source, error) {
	cfg := &filesystemConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("filesystem source dir is required")
	}
	return &filesystemSource{dir: cfg.Dir, filter: filter}, nil
}

func (s *filesystemSource) Name() string {
	return "filesystem"
}

func (s *filesystemSource) ListFiles(ctx context.Context) ([]FileRef, string, error) {
	var refs []FileRef
	listing := ""
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.filter != nil && !s.filter.IsTextFile(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		refs = append(refs, FileRef{Path: rel, Size: info.Size()})
		listing += rel + "\n"
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("walk %s: %w", s.dir, err)
	}
	return refs, ident.HashContent([]byte(listing))[:16], nil
}

func (s *filesystemSource) FetchFile(ctx context.Context, path string) (*File, error) {
	_ = ctx
	content, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{
		Path:    path,
		SHA:     ident.HashContent(content)[:16],
		Content: content,
	}, nil
}

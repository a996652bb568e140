package source

import (
	"path"
	"strings"

	"github.com/xxxsen/kbase/internal/config"
)

// Filter decides which repository paths are text documents worth indexing.
type Filter struct {
	supported map[string]struct{}
	excluded  map[string]struct{}
	paths     []string
}

func NewFilter(cfg config.IngestConfig) *Filter {
	f := &Filter{
		supported: make(map[string]struct{}, len(cfg.SupportedExts)),
		excluded:  make(map[string]struct{}, len(cfg.ExcludedExtensions)),
		paths:     cfg.ExcludedPaths,
	}
	for _, ext := range cfg.SupportedExts {
		f.supported[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range cfg.ExcludedExtensions {
		f.excluded[strings.ToLower(ext)] = struct{}{}
	}
	return f
}

// IsTextFile reports whether a path should be indexed. Supported extensions
// always pass, excluded ones never do; extensionless files pass unless they
// are dotfiles or live under an excluded path segment.
func (f *Filter) IsTextFile(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	if _, ok := f.supported[ext]; ok {
		return true
	}
	if _, ok := f.excluded[ext]; ok {
		return false
	}
	if ext != "" {
		return false
	}
	name := path.Base(filePath)
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, excluded := range f.paths {
		if strings.Contains(filePath, excluded) {
			return false
		}
	}
	return true
}

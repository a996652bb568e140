package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/config"
)

func defaultFilter() *Filter {
	return NewFilter(config.IngestConfig{
		SupportedExts:      []string{".md", ".txt", ".mdx", ".rst"},
		ExcludedPaths:      []string{".git", ".github", "node_modules", ".DS_Store"},
		ExcludedExtensions: []string{".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".pdf"},
	})
}

func TestFilterIsTextFile(t *testing.T) {
	f := defaultFilter()
	tests := []struct {
		path string
		want bool
	}{
		{"docs/readme.md", true},
		{"notes/todo.TXT", true},
		{"guide.mdx", true},
		{"img/logo.png", false},
		{"report.pdf", false},
		{"main.go", false},
		{"LICENSE", true},
		{".gitignore", false},
		{"node_modules/pkg/README", false},
		{".github/workflows/ci", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, f.IsTextFile(tt.path), "path %s", tt.path)
	}
}

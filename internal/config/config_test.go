package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"ai": {"provider": "gemini", "embed_model": "text-embedding-004"},
		"source": {"type": "github", "data": {"repo": "org/docs"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.AI.Dimension)
	assert.Equal(t, 5, cfg.AI.BatchSize)
	assert.Equal(t, 50, cfg.AI.BatchDelayMS)
	assert.Equal(t, 512, cfg.Ingest.ChunkSize)
	assert.Equal(t, 10, cfg.Ingest.MinChunkSize)
	assert.Contains(t, cfg.Ingest.SupportedExts, ".md")
	assert.Contains(t, cfg.Ingest.ExcludedPaths, "node_modules")
	assert.Equal(t, 120, cfg.Schedule.StaleAfterMins)
	assert.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing port", `{"database":{"host":"h"},"ai":{"provider":"gemini","embed_model":"m"},"source":{"type":"github"}}`},
		{"missing database", `{"port":8080,"ai":{"provider":"gemini","embed_model":"m"},"source":{"type":"github"}}`},
		{"missing provider", `{"port":8080,"database":{"host":"h"},"ai":{"embed_model":"m"},"source":{"type":"github"}}`},
		{"missing embed model", `{"port":8080,"database":{"host":"h"},"ai":{"provider":"gemini"},"source":{"type":"github"}}`},
		{"missing source type", `{"port":8080,"database":{"host":"h"},"ai":{"provider":"gemini","embed_model":"m"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "fs", cfg.ObjectStore.Type)
	assert.Equal(t, "extractive", cfg.Generator.Type)
	assert.Equal(t, 1000, cfg.Chunker.Width)
	assert.Equal(t, "filtered", cfg.Ranker.Policy)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FillsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunk_store:
  type: sqlite
  path: /tmp/qa.db
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
ranker:
  policy: strict
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ChunkStore.Type)
	assert.Equal(t, "/tmp/qa.db", cfg.ChunkStore.Path)
	assert.Equal(t, "gcs", cfg.ObjectStore.Type)
	require.NotNil(t, cfg.ObjectStore.GCS)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "strict", cfg.Ranker.Policy)
	assert.Equal(t, 3, cfg.Ranker.AnswerTopK)
	assert.Equal(t, "openai", cfg.Generator.Type)
	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAI.Model)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Chunker.Width = 250
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "chapterqa", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("chunker:\n  width: 42\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 42, cfg.Chunker.Width)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ChunkStore.Type = "redis"
	cfg.Generator.Type = "gemini"
	cfg.Log.Level = "loud"
	cfg.Chunker.Width = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `chunk_store.type: unknown value "redis"`)
	assert.Contains(t, err.Error(), `generator.type: unknown value "gemini"`)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "chunker.width")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

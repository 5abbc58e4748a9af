package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/japanese.db", cfg.DBPath)
	assert.Equal(t, "vi", cfg.Language)
	assert.Equal(t, 0.9, cfg.FSRS.DesiredRetention)
	assert.True(t, cfg.FSRS.EnableFuzzing)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nihongo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/test.db
language: en
fsrs:
  desired_retention: 0.85
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 0.85, cfg.FSRS.DesiredRetention)
	assert.Equal(t, 36500, cfg.FSRS.MaximumInterval, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NIHONGO_LANGUAGE", "en")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("NIHONGO_LANGUAGE", "jp")
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/japanese.db", cfg.DBPath)
}

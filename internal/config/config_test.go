package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseArgs(t *testing.T) []string {
	t.Helper()
	return []string{
		"-source", t.TempDir(),
		"-library", t.TempDir(),
		"-gemini-api-key", "test-key",
		"-env-file", filepath.Join(t.TempDir(), "nonexistent.env"),
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(baseArgs(t))
	require.NoError(t, err)

	assert.Equal(t, OpOrganize, cfg.Operation)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "smart", cfg.Run.Mode)
	assert.Equal(t, 4, cfg.Run.Concurrency)
	assert.Equal(t, 3, cfg.Run.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Run.HTTPTimeout)
	assert.Equal(t, 500, cfg.Covers.MinResolution)
	assert.Equal(t, 0, cfg.Covers.SquareTolerance)
	assert.Contains(t, cfg.Parser.AudioExtensions, ".m4b")
	assert.Contains(t, cfg.Parser.JunkWords, "unabridged")
	assert.Equal(t, "unclassified", cfg.Library.UnclassifiedDirName)
	assert.False(t, cfg.SearchEnabled())
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	args := append(baseArgs(t),
		"-mode", "cover-only",
		"-concurrency", "2",
		"-cover-min-resolution", "800",
		"-dry-run",
	)
	cfg, err := LoadConfig(args)
	require.NoError(t, err)

	assert.Equal(t, "cover-only", cfg.Run.Mode)
	assert.Equal(t, 2, cfg.Run.Concurrency)
	assert.Equal(t, 800, cfg.Covers.MinResolution)
	assert.True(t, cfg.Run.DryRun)
}

func TestLoadConfigMissingGeminiKeyIsFatal(t *testing.T) {
	args := []string{
		"-source", t.TempDir(),
		"-library", t.TempDir(),
		"-env-file", filepath.Join(t.TempDir(), "nonexistent.env"),
	}
	_, err := LoadConfig(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadConfigInventoryNeedsNoSource(t *testing.T) {
	args := []string{
		"-op", OpInventory,
		"-library", t.TempDir(),
		"-env-file", filepath.Join(t.TempDir(), "nonexistent.env"),
	}
	cfg, err := LoadConfig(args)
	require.NoError(t, err)
	assert.Equal(t, OpInventory, cfg.Operation)
}

func TestLoadConfigInvalidMode(t *testing.T) {
	_, err := LoadConfig(append(baseArgs(t), "-mode", "yolo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestLoadConfigEditModeRequiresFieldAndTo(t *testing.T) {
	_, err := LoadConfig(append(baseArgs(t), "-mode", "edit"))
	require.Error(t, err)

	cfg, err := LoadConfig(append(baseArgs(t), "-mode", "edit", "-field", "author", "-to", "New Author"))
	require.NoError(t, err)
	assert.Equal(t, "author", cfg.Run.EditField)
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEARCH_API_KEY=abc\nSEARCH_ENGINE_ID=cx1\n"), 0o644))
	t.Setenv("SEARCH_API_KEY", "")
	t.Setenv("SEARCH_ENGINE_ID", "")
	os.Unsetenv("SEARCH_API_KEY")
	os.Unsetenv("SEARCH_ENGINE_ID")

	args := []string{
		"-source", t.TempDir(),
		"-library", t.TempDir(),
		"-gemini-api-key", "test-key",
		"-env-file", envPath,
	}
	cfg, err := LoadConfig(args)
	require.NoError(t, err)
	assert.True(t, cfg.SearchEnabled())
}

func TestExpandPathMakesAbsolute(t *testing.T) {
	got, err := expandPath("relative/dir")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

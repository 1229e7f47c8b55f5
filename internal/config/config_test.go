package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// clearEnv unsets key for the duration of the test and restores it after
func clearEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	clearEnv(t, "UPLOAD_FILE_BASE_PATH")
	clearEnv(t, "UPLOAD_STORAGE_FILE_BASE_PATH")

	t.Run("applies defaults", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
storage:
  file_base_path: /srv/uploads
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "/srv/uploads", cfg.Storage.FileBasePath)
		assert.Equal(t, "originals", cfg.Storage.OriginalsFolder)
		assert.True(t, cfg.Storage.IgnoreDotFiles)
		assert.True(t, cfg.Storage.IgnoreVCS)
		assert.False(t, cfg.Database.Enabled)
		assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, "info", cfg.Logger.Level)
		assert.Equal(t, "console", cfg.Logger.Format)
	})

	t.Run("reads every section", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
storage:
  file_base_path: /srv/uploads
  originals_folder: raw
  create_to_folder: true
  delete: true
  ignore_dot_files: false
database:
  enabled: true
  path: /var/lib/folders.db
  conn_max_lifetime: 10m
metrics:
  textfile_path: /var/lib/node_exporter/folders.prom
logger:
  level: debug
  format: json
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "raw", cfg.Storage.OriginalsFolder)
		assert.True(t, cfg.Storage.CreateToFolder)
		assert.True(t, cfg.Storage.Delete)
		assert.False(t, cfg.Storage.IgnoreDotFiles)
		assert.True(t, cfg.Database.Enabled)
		assert.Equal(t, "/var/lib/folders.db", cfg.Database.Path)
		assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, "/var/lib/node_exporter/folders.prom", cfg.Metrics.TextfilePath)
		assert.Equal(t, "json", cfg.Logger.Format)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
storage:
  file_base_path: /srv/uploads
`)
		t.Setenv("UPLOAD_FILE_BASE_PATH", "/mnt/uploads")
		t.Setenv("UPLOAD_STORAGE_OVERRIDE", "true")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "/mnt/uploads", cfg.Storage.FileBasePath)
		assert.True(t, cfg.Storage.Override)
	})

	t.Run("loads dotenv next to config", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "logger:\n  level: warn\n")
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UPLOAD_FILE_BASE_PATH=/from/dotenv\n"), 0o644))
		clearEnv(t, "UPLOAD_FILE_BASE_PATH")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "/from/dotenv", cfg.Storage.FileBasePath)
		assert.Equal(t, "warn", cfg.Logger.Level)
	})

	t.Run("requires file_base_path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "logger:\n  level: info\n")

		_, err := Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.file_base_path is required")
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{FileBasePath: "/srv/uploads"},
			Logger:  LoggerConfig{Format: "json"},
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Storage.FileBasePath = "   "
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Logger.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestConfig_StorageOptions(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{
		FileBasePath:   "/srv/uploads",
		CreateToFolder: true,
		IgnoreVCS:      true,
	}}

	opts := cfg.StorageOptions()

	assert.Equal(t, "/srv/uploads", opts.FileBasePath)
	assert.Equal(t, "originals", opts.Originals.Folder)
	assert.True(t, opts.CreateToFolder)
	assert.False(t, opts.IgnoreDotFiles)
	assert.True(t, opts.IgnoreVCS)
	assert.Empty(t, opts.Folder)
}

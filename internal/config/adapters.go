package config

import (
	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/garyjia/upload-folders/pkg/database"
	"github.com/garyjia/upload-folders/pkg/utils"
)

// StorageOptions converts the storage section into the base options of a
// storage.FolderManager. Per-call fields such as folder stay empty.
func (c *Config) StorageOptions() storage.Options {
	opts := storage.DefaultOptions(c.Storage.FileBasePath)
	if c.Storage.OriginalsFolder != "" {
		opts.Originals.Folder = c.Storage.OriginalsFolder
	}
	opts.CreateToFolder = c.Storage.CreateToFolder
	opts.Override = c.Storage.Override
	opts.Delete = c.Storage.Delete
	opts.IgnoreDotFiles = c.Storage.IgnoreDotFiles
	opts.IgnoreVCS = c.Storage.IgnoreVCS
	opts.FilesOnly = c.Storage.FilesOnly
	return opts
}

// DatabaseOptions converts the database section into a database.Config
func (c *Config) DatabaseOptions() database.Config {
	return database.Config{
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// LoggerOptions converts the logger section into a utils.LoggerConfig
func (c *Config) LoggerOptions() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "UPLOAD"

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// StorageConfig holds the base options of the folder manager
type StorageConfig struct {
	FileBasePath    string `mapstructure:"file_base_path"`
	OriginalsFolder string `mapstructure:"originals_folder"`
	CreateToFolder  bool   `mapstructure:"create_to_folder"`
	Override        bool   `mapstructure:"override"`
	Delete          bool   `mapstructure:"delete"`
	IgnoreDotFiles  bool   `mapstructure:"ignore_dot_files"`
	IgnoreVCS       bool   `mapstructure:"ignore_vcs"`
	FilesOnly       bool   `mapstructure:"files_only"`
}

// DatabaseConfig holds the operation journal database configuration
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MetricsConfig holds metrics export configuration.
// An empty TextfilePath disables the export.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// With an empty configPath, config.yaml is looked up in ./configs and the
// working directory and may be absent. A .env file next to the config file
// is loaded first; variables already set in the environment win.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.file_base_path", "")
	v.SetDefault("storage.originals_folder", "originals")
	v.SetDefault("storage.create_to_folder", false)
	v.SetDefault("storage.override", false)
	v.SetDefault("storage.delete", false)
	v.SetDefault("storage.ignore_dot_files", true)
	v.SetDefault("storage.ignore_vcs", true)
	v.SetDefault("storage.files_only", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "data/folders.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("metrics.textfile_path", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds the short variable names used by deployments
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"storage.file_base_path": EnvPrefix + "_FILE_BASE_PATH",
		"database.path":          EnvPrefix + "_DATABASE_PATH",
		"logger.level":           EnvPrefix + "_LOG_LEVEL",
	}
	for key, env := range bindings {
		// the prefixed long form stays valid
		long := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, long); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

func loadDotEnv(configPath string) error {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	path := filepath.Join(dir, ".env")

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.FileBasePath) == "" {
		return fmt.Errorf("storage.file_base_path is required")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path is required when database.enabled is set")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}

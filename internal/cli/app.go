package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/garyjia/upload-folders/internal/config"
	"github.com/garyjia/upload-folders/internal/history"
	"github.com/garyjia/upload-folders/internal/metrics"
	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/garyjia/upload-folders/pkg/database"
	"github.com/garyjia/upload-folders/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App holds everything a command needs
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Manager *storage.FolderManager
	History *history.OperationRepository // nil when the journal is disabled
	Metrics *metrics.Collector

	registry *prometheus.Registry
	closers  []func() error
}

// NewApp wires the folder manager with its logger, journal and metrics.
// Logs go to logOutput unless the config names a file or stdout.
func NewApp(cfg *config.Config, logOutput io.Writer) (*App, error) {
	loggerCfg := cfg.LoggerOptions()
	if loggerCfg.OutputPath == "" || loggerCfg.OutputPath == "stderr" {
		loggerCfg.Writer = logOutput
	}
	logger, closeLog, err := utils.NewLogger(loggerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	app.closers = append(app.closers, closeLog, ignoreSyncError(logger))

	app.Metrics, err = metrics.NewCollector(app.registry)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	observers := []storage.Observer{app.Metrics}

	if cfg.Database.Enabled {
		db, err := database.New(cfg.DatabaseOptions(), logger)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.closers = append(app.closers, db.Close)

		if err := history.Migrate(db, logger); err != nil {
			_ = app.Close()
			return nil, err
		}
		app.History = history.NewOperationRepository(db.DB, logger)
		observers = append(observers, app.History)
	}

	app.Manager, err = storage.NewFolderManager(
		cfg.StorageOptions(),
		storage.NewOSFilesystem(logger),
		logger,
		storage.WithObserver(observers...),
	)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	return app, nil
}

// Close exports metrics when a textfile path is configured and releases
// the database and log file. Closers run in reverse order.
func (a *App) Close() error {
	var errs []error

	if path := a.Config.Metrics.TextfilePath; path != "" && a.Metrics != nil {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			errs = append(errs, err)
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}

// syncing stderr fails on some platforms, which is not worth reporting
func ignoreSyncError(logger *zap.Logger) func() error {
	return func() error {
		_ = logger.Sync()
		return nil
	}
}

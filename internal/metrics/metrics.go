package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "upload_folders"

// Collector counts folder operations. It implements storage.Observer.
type Collector struct {
	OperationsTotal      *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	FilesCopiedTotal     prometheus.Counter
	FilesSkippedTotal    prometheus.Counter
	EntriesDeletedTotal  prometheus.Counter
	FoldersRemovedTotal  prometheus.Counter
	LastSuccessTimestamp *prometheus.GaugeVec
}

// NewCollector creates the operation metrics and registers them on reg
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Folder operations by kind and status.",
		}, []string{"kind", "status"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of folder operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),

		FilesCopiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Files copied by sync operations.",
		}),

		FilesSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Files left alone by sync operations because the target was up to date.",
		}),

		EntriesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Extraneous target entries deleted by sync operations.",
		}),

		FoldersRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_removed_total",
			Help:      "Folders removed by remove operations and sync cleanup.",
		}),

		LastSuccessTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful operation by kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		c.OperationsTotal,
		c.OperationDuration,
		c.FilesCopiedTotal,
		c.FilesSkippedTotal,
		c.EntriesDeletedTotal,
		c.FoldersRemovedTotal,
		c.LastSuccessTimestamp,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// RecordOperation updates the metrics from a finished operation
func (c *Collector) RecordOperation(op storage.Operation) error {
	kind := string(op.Kind)
	status := "success"
	if !op.Succeeded() {
		status = "failed"
	}

	c.OperationsTotal.WithLabelValues(kind, status).Inc()
	c.OperationDuration.WithLabelValues(kind).Observe(op.Duration.Seconds())

	if op.Sync != nil {
		c.FilesCopiedTotal.Add(float64(op.Sync.Mirror.FilesCopied))
		c.FilesSkippedTotal.Add(float64(op.Sync.Mirror.FilesSkipped))
		c.EntriesDeletedTotal.Add(float64(op.Sync.Mirror.EntriesDeleted))
		if op.Sync.RemovedFrom {
			c.FoldersRemovedTotal.Inc()
		}
		if op.Sync.RemovedOriginals {
			c.FoldersRemovedTotal.Inc()
		}
	}

	if op.Succeeded() {
		if op.Kind == storage.OperationRemove {
			c.FoldersRemovedTotal.Inc()
		}
		c.LastSuccessTimestamp.WithLabelValues(kind).Set(float64(op.StartedAt.Add(op.Duration).Unix()))
	}

	return nil
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for the node_exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

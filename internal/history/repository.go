package history

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/garyjia/upload-folders/pkg/database"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one journaled remove or sync
type Record struct {
	ID               int64
	Kind             storage.OperationKind
	Folder           string
	Target           string
	Status           string
	Error            string
	FilesCopied      int
	FilesSkipped     int
	EntriesDeleted   int
	RemovedFrom      bool
	RemovedOriginals bool
	Duration         time.Duration
	StartedAt        time.Time
}

// Migrate creates or upgrades the journal schema
func Migrate(db *database.DB, logger *zap.Logger) error {
	if _, err := database.NewMigrator(db, logger).Run(migrations); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	return nil
}

// OperationRepository journals mutating folder operations.
// It implements storage.Observer; list calls are not recorded.
type OperationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *sql.DB, logger *zap.Logger) *OperationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationRepository{
		db:     db,
		logger: logger,
	}
}

// RecordOperation stores op unless it is a list
func (r *OperationRepository) RecordOperation(op storage.Operation) error {
	if op.Kind == storage.OperationList {
		return nil
	}
	return r.Create(NewRecord(op))
}

// NewRecord flattens an operation into a journal record
func NewRecord(op storage.Operation) *Record {
	record := &Record{
		Kind:      op.Kind,
		Folder:    op.Folder,
		Target:    op.Target,
		Status:    StatusSuccess,
		Duration:  op.Duration,
		StartedAt: op.StartedAt.UTC(),
	}
	if op.Err != nil {
		record.Status = StatusFailed
		record.Error = op.Err.Error()
	}
	if op.Sync != nil {
		record.FilesCopied = op.Sync.Mirror.FilesCopied
		record.FilesSkipped = op.Sync.Mirror.FilesSkipped
		record.EntriesDeleted = op.Sync.Mirror.EntriesDeleted
		record.RemovedFrom = op.Sync.RemovedFrom
		record.RemovedOriginals = op.Sync.RemovedOriginals
	}
	return record
}

// Create inserts record and sets its ID
func (r *OperationRepository) Create(record *Record) error {
	query := `
		INSERT INTO folder_operations (
			kind, folder, target, status, error,
			files_copied, files_skipped, entries_deleted,
			removed_from, removed_originals, duration_ms, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(query,
		string(record.Kind),
		record.Folder,
		record.Target,
		record.Status,
		record.Error,
		record.FilesCopied,
		record.FilesSkipped,
		record.EntriesDeleted,
		record.RemovedFrom,
		record.RemovedOriginals,
		record.Duration.Milliseconds(),
		record.StartedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create operation record",
			zap.String("kind", string(record.Kind)),
			zap.Error(err))
		return fmt.Errorf("failed to create operation record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// List returns the latest records, newest first. A limit <= 0 returns all.
func (r *OperationRepository) List(limit int) ([]*Record, error) {
	query := `
		SELECT id, kind, folder, target, status, error,
			files_copied, files_skipped, entries_deleted,
			removed_from, removed_originals, duration_ms, started_at
		FROM folder_operations
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list operation records", zap.Error(err))
		return nil, fmt.Errorf("failed to list operation records: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		var record Record
		var kind string
		var durationMs int64

		err := rows.Scan(
			&record.ID,
			&kind,
			&record.Folder,
			&record.Target,
			&record.Status,
			&record.Error,
			&record.FilesCopied,
			&record.FilesSkipped,
			&record.EntriesDeleted,
			&record.RemovedFrom,
			&record.RemovedOriginals,
			&durationMs,
			&record.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation record: %w", err)
		}

		record.Kind = storage.OperationKind(kind)
		record.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation records: %w", err)
	}

	return records, nil
}

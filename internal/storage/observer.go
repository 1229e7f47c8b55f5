package storage

import (
	"time"

	"go.uber.org/zap"
)

// OperationKind names a FolderManager operation
type OperationKind string

const (
	OperationList   OperationKind = "list"
	OperationRemove OperationKind = "remove"
	OperationSync   OperationKind = "sync"
)

// Operation describes one finished FolderManager call
type Operation struct {
	Kind      OperationKind
	Folder    string // listed or removed folder, sync source
	Target    string // sync destination
	StartedAt time.Time
	Duration  time.Duration
	Entries   int         // entries returned by a list
	Sync      *SyncResult // set for sync calls that got past validation
	Err       error
}

// Succeeded reports whether the operation returned without error
func (o Operation) Succeeded() bool {
	return o.Err == nil
}

// Observer is notified after every operation. A failing observer is logged
// and never changes the operation result.
type Observer interface {
	RecordOperation(op Operation) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(op Operation) error

func (f ObserverFunc) RecordOperation(op Operation) error {
	return f(op)
}

// ManagerOption customizes a FolderManager
type ManagerOption func(*FolderManager)

// WithObserver registers observers notified after each operation
func WithObserver(observers ...Observer) ManagerOption {
	return func(m *FolderManager) {
		m.observers = append(m.observers, observers...)
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ManagerOption {
	return func(m *FolderManager) {
		m.now = now
	}
}

func (m *FolderManager) notify(op Operation) {
	for _, o := range m.observers {
		if err := o.RecordOperation(op); err != nil {
			m.logger.Warn("Failed to record folder operation",
				zap.String("kind", string(op.Kind)),
				zap.String("folder", op.Folder),
				zap.Error(err))
		}
	}
}

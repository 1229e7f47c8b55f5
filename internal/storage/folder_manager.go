package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SyncResult reports what SyncFolders did
type SyncResult struct {
	From string
	To   string

	// SourceMissing is set when there was nothing to sync
	SourceMissing bool
	// CreatedTo is set when the destination was created by this call
	CreatedTo bool

	Mirror           MirrorStats
	RemovedFrom      bool
	RemovedOriginals bool
}

// FolderManager lists, removes and mirrors upload folders living under a
// common base path
type FolderManager struct {
	options   Options
	fs        Filesystem
	logger    *zap.Logger
	observers []Observer
	now       func() time.Time
}

// NewFolderManager creates a FolderManager. It fails with ErrUsage when
// file_base_path is empty. A nil filesystem means the local disk.
func NewFolderManager(opts Options, filesystem Filesystem, logger *zap.Logger, managerOpts ...ManagerOption) (*FolderManager, error) {
	base := strings.TrimSpace(opts.FileBasePath)
	if base == "" {
		return nil, usageError("file_base_path option looks empty, bailing out")
	}
	opts.FileBasePath = filepath.Clean(base)

	if logger == nil {
		logger = zap.NewNop()
	}
	if filesystem == nil {
		filesystem = NewOSFilesystem(logger)
	}

	m := &FolderManager{
		options: opts,
		fs:      filesystem,
		logger:  logger,
		now:     time.Now,
	}
	for _, apply := range managerOpts {
		apply(m)
	}

	return m, nil
}

// Option returns the base configuration value stored under name.
// Nested keys use dots, e.g. "originals.folder". Unknown keys report false.
func (m *FolderManager) Option(name string) (any, bool) {
	return m.options.lookup(name)
}

// Options returns a copy of the base configuration
func (m *FolderManager) Options() Options {
	return m.options
}

// BasePath returns the cleaned file_base_path
func (m *FolderManager) BasePath() string {
	return m.options.FileBasePath
}

// ListFiles returns the entries found by walking file_base_path/folder, or
// file_base_path/folder/originals when includeOriginals is set. Names are
// returned unless full_path is set, in which case resolved absolute paths
// are returned. A missing folder yields an empty list.
func (m *FolderManager) ListFiles(override *Overrides, includeOriginals bool) (files []string, err error) {
	started := m.now()
	opts := Resolve(m.options, override)
	files = make([]string, 0)

	defer func() {
		m.notify(Operation{
			Kind:      OperationList,
			Folder:    opts.Folder,
			StartedAt: started,
			Duration:  m.now().Sub(started),
			Entries:   len(files),
			Err:       err,
		})
	}()

	base, err := resolvedBase(opts)
	if err != nil {
		return files, err
	}
	if strings.TrimSpace(opts.Folder) == "" {
		return files, usageError("folder option looks empty, bailing out")
	}

	segments := []string{opts.Folder}
	if includeOriginals {
		segments = append(segments, opts.Originals.Folder)
	}
	target, err := containedPath(base, segments...)
	if err != nil {
		return files, err
	}

	if !m.fs.Exists(target) {
		m.logger.Debug("Folder does not exist, nothing to list", zap.String("folder_path", target))
		return files, nil
	}

	walkOpts := WalkOptions{
		IgnoreDotFiles: opts.IgnoreDotFiles,
		IgnoreVCS:      opts.IgnoreVCS,
		FilesOnly:      opts.FilesOnly,
	}
	err = m.fs.Walk(target, walkOpts, func(entry Entry) error {
		if !opts.FullPath {
			files = append(files, entry.Name)
			return nil
		}
		resolved, err := m.fs.RealPath(entry.Path)
		if err != nil {
			return err
		}
		files = append(files, resolved)
		return nil
	})
	if err != nil {
		m.logger.Error("Failed to list folder",
			zap.String("folder_path", target),
			zap.Error(err))
		files = make([]string, 0)
		return files, err
	}

	m.logger.Debug("Listed folder",
		zap.String("folder_path", target),
		zap.Int("entries", len(files)))

	return files, nil
}

// RemoveFolder deletes file_base_path/folder and everything beneath it.
// Only the folder given in override is honoured, never a configured
// default, and it must not be empty. A missing folder is not an error.
func (m *FolderManager) RemoveFolder(override *Overrides) (err error) {
	started := m.now()
	var folder string
	if override != nil && override.Folder != nil {
		folder = *override.Folder
	}

	defer func() {
		m.notify(Operation{
			Kind:      OperationRemove,
			Folder:    folder,
			StartedAt: started,
			Duration:  m.now().Sub(started),
			Err:       err,
		})
	}()

	if strings.TrimSpace(folder) == "" {
		return usageError("folder option looks empty, bailing out")
	}

	target, err := containedPath(m.options.FileBasePath, folder)
	if err != nil {
		return err
	}

	// let the caller deal with I/O failures
	if err := m.fs.Remove(target); err != nil {
		m.logger.Error("Failed to remove folder",
			zap.String("folder", folder),
			zap.String("folder_path", target),
			zap.Error(err))
		return err
	}

	m.logger.Info("Removed folder",
		zap.String("folder", folder),
		zap.String("folder_path", target))

	return nil
}

// SyncFolders mirrors file_base_path/from_folder into
// file_base_path/to_folder. A missing source is not an error: usually
// nothing has been uploaded yet. The destination must exist unless
// create_to_folder is set. Afterwards the source is removed when
// remove_from_folder is set and the destination originals folder when
// remove_original_folder is set. Nothing is rolled back on failure.
func (m *FolderManager) SyncFolders(override *Overrides) (result *SyncResult, err error) {
	started := m.now()
	opts := Resolve(m.options, override)

	defer func() {
		m.notify(Operation{
			Kind:      OperationSync,
			Folder:    opts.FromFolder,
			Target:    opts.ToFolder,
			StartedAt: started,
			Duration:  m.now().Sub(started),
			Sync:      result,
			Err:       err,
		})
	}()

	// This can delete folders, so refuse to guess
	if strings.TrimSpace(opts.FromFolder) == "" {
		return nil, usageError("from_folder option looks empty, bailing out")
	}
	if strings.TrimSpace(opts.ToFolder) == "" {
		return nil, usageError("to_folder option looks empty, bailing out")
	}

	base, err := resolvedBase(opts)
	if err != nil {
		return nil, err
	}
	from, err := containedPath(base, opts.FromFolder)
	if err != nil {
		return nil, err
	}
	to, err := containedPath(base, opts.ToFolder)
	if err != nil {
		return nil, err
	}
	if err := checkDisjoint(from, to); err != nil {
		return nil, err
	}
	var originalFolder string
	if opts.RemoveOriginalFolder {
		if strings.TrimSpace(opts.Originals.Folder) == "" {
			return nil, usageError("originals.folder option looks empty, bailing out")
		}
		originalFolder, err = containedPath(to, opts.Originals.Folder)
		if err != nil {
			return nil, err
		}
	}

	result = &SyncResult{From: from, To: to}

	if !m.fs.Exists(from) {
		m.logger.Debug("Sync source does not exist, nothing to do",
			zap.String("from", from),
			zap.String("to", to))
		result.SourceMissing = true
		return result, nil
	}

	toExists := m.fs.Exists(to)
	if opts.CreateToFolder {
		if !toExists {
			if err := m.fs.MkdirAll(to); err != nil {
				m.logger.Debug("Failed to create sync destination, continuing",
					zap.String("to", to),
					zap.Error(err))
			} else {
				result.CreatedTo = true
			}
		}
	} else if !toExists {
		m.logger.Error("Sync destination does not exist",
			zap.String("from", from),
			zap.String("to", to))
		return result, fmt.Errorf("%w: to_folder does not exist: %s", ErrState, to)
	}

	stats, err := m.fs.Mirror(from, to, MirrorOptions{
		Override: opts.Override,
		Delete:   opts.Delete,
	})
	result.Mirror = stats
	if err != nil {
		m.logger.Error("Failed to mirror folders",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return result, err
	}

	if opts.RemoveFromFolder {
		if err := m.fs.Remove(from); err != nil {
			return result, err
		}
		result.RemovedFrom = true
	}

	if opts.RemoveOriginalFolder {
		if err := m.fs.Remove(originalFolder); err != nil {
			return result, err
		}
		result.RemovedOriginals = true
	}

	m.logger.Info("Synced folders",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("files_copied", stats.FilesCopied),
		zap.Int("files_skipped", stats.FilesSkipped),
		zap.Int("entries_deleted", stats.EntriesDeleted),
		zap.Bool("removed_from", result.RemovedFrom),
		zap.Bool("removed_originals", result.RemovedOriginals))

	return result, nil
}

func resolvedBase(opts Options) (string, error) {
	base := strings.TrimSpace(opts.FileBasePath)
	if base == "" {
		return "", usageError("file_base_path option looks empty, bailing out")
	}
	return filepath.Clean(base), nil
}

// containedPath joins segments onto base and rejects results that are base
// itself or lie outside it
func containedPath(base string, segments ...string) (string, error) {
	full := filepath.Join(append([]string{base}, segments...)...)

	if !isWithin(base, full) {
		return "", usageError("folder %q escapes base directory %s", filepath.Join(segments...), base)
	}
	return full, nil
}

// checkDisjoint rejects a sync whose source and destination are the same
// folder or nested in one another
func checkDisjoint(from, to string) error {
	if filepath.Clean(from) == filepath.Clean(to) {
		return usageError("from_folder and to_folder are the same folder %s", from)
	}
	if isWithin(from, to) || isWithin(to, from) {
		return usageError("from_folder %s and to_folder %s are nested in one another", from, to)
	}
	return nil
}

// isWithin reports whether path lies strictly below parent
func isWithin(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

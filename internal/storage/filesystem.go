package storage

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Entry is a single item yielded while walking a directory tree
type Entry struct {
	Path  string
	Name  string
	IsDir bool
}

// WalkOptions filters what Walk yields
type WalkOptions struct {
	IgnoreDotFiles bool
	IgnoreVCS      bool
	FilesOnly      bool
}

// MirrorOptions is the conflict policy applied by Mirror
type MirrorOptions struct {
	// Override copies files even when the target is newer than the source
	Override bool
	// Delete removes target entries that have no counterpart in the source
	Delete bool
}

// MirrorStats counts what a Mirror call did
type MirrorStats struct {
	FilesCopied    int
	FilesSkipped   int
	DirsMirrored   int
	LinksCreated   int
	EntriesDeleted int
}

// Filesystem is everything a FolderManager needs from the disk
type Filesystem interface {
	// Exists reports whether path can be stat'ed
	Exists(path string) bool
	// MkdirAll creates path and any missing parents
	MkdirAll(path string) error
	// Remove deletes path recursively; a missing path is not an error
	Remove(path string) error
	// Mirror synchronizes the tree under from into to
	Mirror(from, to string, opts MirrorOptions) (MirrorStats, error)
	// Walk yields the entries below root, excluding root itself
	Walk(root string, opts WalkOptions, fn func(Entry) error) error
	// RealPath returns the absolute path of an entry with links resolved
	RealPath(path string) (string, error)
}

// vcsDirs are the version control folders skipped when IgnoreVCS is set
var vcsDirs = map[string]struct{}{
	".svn":         {},
	"_svn":         {},
	"CVS":          {},
	"_darcs":       {},
	".arch-params": {},
	".monotone":    {},
	".bzr":         {},
	".git":         {},
	".hg":          {},
}

// AferoFilesystem implements Filesystem on top of an afero.Fs
type AferoFilesystem struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewAferoFilesystem wraps fs. Use afero.NewMemMapFs() in tests.
func NewAferoFilesystem(fs afero.Fs, logger *zap.Logger) *AferoFilesystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AferoFilesystem{
		fs:     fs,
		logger: logger,
	}
}

// NewOSFilesystem returns a Filesystem backed by the local disk
func NewOSFilesystem(logger *zap.Logger) *AferoFilesystem {
	return NewAferoFilesystem(afero.NewOsFs(), logger)
}

// Fs exposes the underlying afero filesystem
func (a *AferoFilesystem) Fs() afero.Fs {
	return a.fs
}

// Exists reports whether path exists, following links
func (a *AferoFilesystem) Exists(path string) bool {
	if _, err := a.fs.Stat(path); err != nil {
		return false
	}
	return true
}

// MkdirAll creates path with its parents
func (a *AferoFilesystem) MkdirAll(path string) error {
	if err := a.fs.MkdirAll(path, 0o755); err != nil {
		return ioError("create directory", path, err)
	}
	return nil
}

// Remove deletes path and everything beneath it
func (a *AferoFilesystem) Remove(path string) error {
	if err := a.fs.RemoveAll(path); err != nil {
		a.logger.Error("Failed to remove path",
			zap.String("path", path),
			zap.Error(err))
		return ioError("remove", path, err)
	}

	a.logger.Debug("Removed path", zap.String("path", path))
	return nil
}

// Walk visits the tree under root in lexical order
func (a *AferoFilesystem) Walk(root string, opts WalkOptions, fn func(Entry) error) error {
	root = filepath.Clean(root)

	err := afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		name := info.Name()
		if (opts.IgnoreDotFiles && strings.HasPrefix(name, ".")) || (opts.IgnoreVCS && isVCSDir(name, info)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.FilesOnly && info.IsDir() {
			return nil
		}

		return fn(Entry{
			Path:  path,
			Name:  name,
			IsDir: info.IsDir(),
		})
	})
	if err != nil {
		return ioError("walk", root, err)
	}
	return nil
}

// RealPath resolves path to an absolute path. On the OS filesystem
// symbolic links are evaluated too; a dangling link resolves to its own
// absolute path.
func (a *AferoFilesystem) RealPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ioError("resolve", path, err)
	}

	if _, ok := a.fs.(*afero.OsFs); !ok {
		return abs, nil
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, iofs.ErrNotExist) {
		a.logger.Debug("Link target does not exist, keeping link path",
			zap.String("path", abs))
		return abs, nil
	}
	if err != nil {
		return "", ioError("resolve", path, err)
	}
	return resolved, nil
}

func isVCSDir(name string, info os.FileInfo) bool {
	if !info.IsDir() {
		return false
	}
	_, ok := vcsDirs[name]
	return ok
}

// lstat uses Lstat when the filesystem supports it so links are not followed
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}

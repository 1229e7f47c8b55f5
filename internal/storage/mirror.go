package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var errLinkedDirectory = errors.New("linked directory needs symlink support")

// Mirror copies the tree under from into to.
//
// Files are copied when the target is missing, when opts.Override is set, or
// when the source is newer than the target. Copies keep the source mtime and
// pick up its executable bits. Symbolic links are recreated as links when the
// backing fs supports it. With opts.Delete, target entries without a source
// counterpart are removed before copying.
func (a *AferoFilesystem) Mirror(from, to string, opts MirrorOptions) (MirrorStats, error) {
	var stats MirrorStats
	from = filepath.Clean(from)
	to = filepath.Clean(to)

	info, err := a.fs.Stat(from)
	if err != nil {
		return stats, ioError("mirror", from, err)
	}
	if !info.IsDir() {
		return stats, ioError("mirror", from, ErrNotDirectory)
	}

	if opts.Delete && a.Exists(to) {
		deleted, err := a.deleteExtraneous(from, to)
		stats.EntriesDeleted = deleted
		if err != nil {
			return stats, err
		}
	}

	if err := a.fs.MkdirAll(to, 0o755); err != nil {
		return stats, ioError("create directory", to, err)
	}

	err = afero.Walk(a.fs, from, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(to, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			return a.mirrorLink(path, target, opts, &stats)
		case info.IsDir():
			if err := a.fs.MkdirAll(target, 0o755); err != nil {
				return ioError("create directory", target, err)
			}
			stats.DirsMirrored++
			return nil
		default:
			copied, err := a.copyFile(path, target, info, opts.Override)
			if err != nil {
				return err
			}
			if copied {
				stats.FilesCopied++
			} else {
				stats.FilesSkipped++
			}
			return nil
		}
	})
	if err != nil {
		a.logger.Error("Mirror failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Int("files_copied", stats.FilesCopied),
			zap.Error(err))
		return stats, ioError("mirror", from, err)
	}

	a.logger.Debug("Mirror completed",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("files_copied", stats.FilesCopied),
		zap.Int("files_skipped", stats.FilesSkipped),
		zap.Int("entries_deleted", stats.EntriesDeleted))

	return stats, nil
}

// deleteExtraneous removes entries under to that do not exist under from.
// A removed directory is not descended into.
func (a *AferoFilesystem) deleteExtraneous(from, to string) (int, error) {
	var stale []string

	err := afero.Walk(a.fs, to, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(to, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if _, err := lstat(a.fs, filepath.Join(from, rel)); err == nil {
			return nil
		}

		stale = append(stale, path)
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, ioError("scan", to, err)
	}

	for i, path := range stale {
		if err := a.fs.RemoveAll(path); err != nil {
			return i, ioError("remove", path, err)
		}
		a.logger.Debug("Removed extraneous entry", zap.String("path", path))
	}

	return len(stale), nil
}

// copyFile copies a regular file, returning false when it was skipped
// because the target is at least as new as the source
func (a *AferoFilesystem) copyFile(src, dst string, srcInfo os.FileInfo, override bool) (bool, error) {
	if !override {
		if dstInfo, err := a.fs.Stat(dst); err == nil && !srcInfo.ModTime().After(dstInfo.ModTime()) {
			return false, nil
		}
	}

	in, err := a.fs.Open(src)
	if err != nil {
		return false, ioError("open", src, err)
	}
	defer in.Close()

	out, err := a.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return false, ioError("create", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, ioError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return false, ioError("close", dst, err)
	}

	if dstInfo, err := a.fs.Stat(dst); err == nil {
		mode := dstInfo.Mode().Perm() | (srcInfo.Mode().Perm() & 0o111)
		if err := a.fs.Chmod(dst, mode); err != nil {
			a.logger.Debug("Failed to copy file permissions",
				zap.String("path", dst),
				zap.Error(err))
		}
	}
	if err := a.fs.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		a.logger.Debug("Failed to copy file times",
			zap.String("path", dst),
			zap.Error(err))
	}

	return true, nil
}

// mirrorLink recreates a symbolic link at dst. Filesystems without link
// support get a copy of the link target instead.
func (a *AferoFilesystem) mirrorLink(src, dst string, opts MirrorOptions, stats *MirrorStats) error {
	linker, ok := a.fs.(afero.Symlinker)
	if !ok {
		resolved, err := a.fs.Stat(src)
		if err != nil {
			return ioError("stat", src, err)
		}
		if resolved.IsDir() {
			return ioError("copy", src, errLinkedDirectory)
		}
		copied, err := a.copyFile(src, dst, resolved, opts.Override)
		if err != nil {
			return err
		}
		if copied {
			stats.FilesCopied++
		} else {
			stats.FilesSkipped++
		}
		return nil
	}

	link, err := linker.ReadlinkIfPossible(src)
	if err != nil {
		return ioError("read link", src, err)
	}

	if current, err := linker.ReadlinkIfPossible(dst); err == nil && current == link {
		stats.FilesSkipped++
		return nil
	}

	if _, err := lstat(a.fs, dst); err == nil {
		if err := a.fs.RemoveAll(dst); err != nil {
			return ioError("remove", dst, err)
		}
	}
	if err := linker.SymlinkIfPossible(link, dst); err != nil {
		return ioError("link", dst, err)
	}

	stats.LinksCreated++
	return nil
}

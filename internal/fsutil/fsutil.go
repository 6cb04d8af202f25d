// Package fsutil holds the copy, move and remove primitives used by install
// and uninstall.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExcludes are the name substrings skipped when copying package content.
var DefaultExcludes = []string{
	".git",
	".DS_Store",
	"Thumbs.db",
	"node_modules",
	"__pycache__",
	".pytest_cache",
}

// Excluder skips directory entries whose name contains any of its patterns.
// A nil Excluder excludes nothing.
type Excluder struct {
	patterns []string
}

// NewExcluder creates an Excluder for the given substrings. Empty patterns
// are ignored.
func NewExcluder(patterns []string) *Excluder {
	e := &Excluder{}
	for _, p := range patterns {
		if p != "" {
			e.patterns = append(e.patterns, p)
		}
	}
	return e
}

// Excluded reports whether an entry with this base name should be skipped.
func (e *Excluder) Excluded(name string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Exists reports whether path is present. Dangling symlinks count as present.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CopyTree copies src to dst. Directories are copied recursively and entries
// matching ex are skipped at every depth; the root itself is never excluded.
// A missing src yields an error matching fs.ErrNotExist.
func CopyTree(src, dst string, ex *Excluder) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		return copyDir(src, dst, info.Mode(), ex)
	case info.Mode()&fs.ModeSymlink != 0:
		return copySymlink(src, dst)
	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode())
	default:
		return fmt.Errorf("unsupported file type %s: %s", info.Mode().Type(), src)
	}
}

// copyDir recursively copies a directory.
func copyDir(src, dst string, mode fs.FileMode, ex *Excluder) error {
	if err := os.MkdirAll(dst, mode.Perm()|0700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if ex.Excluded(entry.Name()) {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		info, err := os.Lstat(srcPath)
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			err = copyDir(srcPath, dstPath, info.Mode(), ex)
		case info.Mode()&fs.ModeSymlink != 0:
			err = copySymlink(srcPath, dstPath)
		case info.Mode().IsRegular():
			err = copyFile(srcPath, dstPath, info.Mode())
		default:
			// sockets, devices and pipes have no place in a content bundle
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// copyFile copies a single file, creating parent directories as needed.
func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	// OpenFile only applies the mode on creation.
	return os.Chmod(dst, mode.Perm())
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := RemoveAll(dst); err != nil {
		return err
	}
	return os.Symlink(link, dst)
}

// RemoveAll deletes path and everything below it. Removing an absent path is
// a no-op.
func RemoveAll(path string) error {
	if path == "" {
		return errors.New("refusing to remove empty path")
	}
	err := os.RemoveAll(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Move relocates src to dst, replacing whatever is at dst. It renames when
// possible and falls back to copy-then-remove across filesystems.
func Move(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return err
	}
	if err := RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyTree(src, dst, nil); err != nil {
		return err
	}
	return RemoveAll(src)
}

// Within joins a slash-separated relative path onto root, rejecting absolute
// paths and paths that climb out of root.
func Within(root, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty relative path")
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("path %q must be relative", rel)
	}
	clean := filepath.Clean(native)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return filepath.Join(root, clean), nil
}

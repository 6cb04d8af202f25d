// Package testutil provides fixtures and helpers for sage tests: fake homes,
// fake content packages and directory snapshots.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sage-kit/sage/internal/config"
)

// FixedTime is the clock used by NewTestConfig.
var FixedTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

// PackageFiles is the content written by NewPackageRoot. It follows the
// built-in bundle layout and includes entries the default excludes must drop.
var PackageFiles = map[string]string{
	"INSTRUCTIONS.md":                             "# Sage instructions\n",
	"output-styles/sage.md":                       "---\nname: sage\n---\nBe brief.\n",
	"skills/review/SKILL.md":                      "# Review\n",
	"skills/review/scripts/check.py":              "print('ok')\n",
	"skills/review/scripts/__pycache__/check.pyc": "bytecode",
	"skills/review/.DS_Store":                     "finder",
	"skills/plan/SKILL.md":                        "# Plan\n",
	"skills/plan/.git/HEAD":                       "ref: refs/heads/main\n",
	"skills/plan/node_modules/dep/index.js":       "module.exports = 1\n",
	"commands/ship.md":                            "Ship it.\n",
	"commands/.pytest_cache/v/cache/lastfailed":   "{}",
}

// NewPackageRoot creates a content package in a temp dir and returns its path.
func NewPackageRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range PackageFiles {
		WriteFile(t, root, rel, content)
	}
	return root
}

// NewFakeExecutable writes a stand-in for the running binary.
func NewFakeExecutable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sage")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho sage\n"), 0755); err != nil {
		t.Fatalf("Failed to write fake executable: %v", err)
	}
	return path
}

// NewTestConfig creates a configuration with a temp home, a fake package and
// a fake executable. The clock is fixed at FixedTime.
func NewTestConfig(t *testing.T, profileName string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Profile = profileName
	cfg.HomeDir = t.TempDir()
	cfg.PackageRoot = NewPackageRoot(t)
	cfg.Executable = NewFakeExecutable(t)
	cfg.Now = func() time.Time { return FixedTime }
	cfg.Logging.Level = config.LogLevelDebug
	return cfg
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// ReadFile returns the content of root/rel.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", rel, err)
	}
	return string(data)
}

// SnapshotTree maps every entry below dir to a fingerprint: "dir" for
// directories, "link:<target>" for symlinks and a content hash plus mode for
// files. A missing dir yields an empty snapshot.
func SnapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()

	snap := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			snap[rel] = "dir"
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			snap[rel] = "link:" + link
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(data)
			snap[rel] = info.Mode().Perm().String() + ":" + hex.EncodeToString(sum[:])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to snapshot %s: %v", dir, err)
	}
	return snap
}

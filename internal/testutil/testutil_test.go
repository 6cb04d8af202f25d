package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotTree(t *testing.T) {
	dir := t.TempDir()
	WriteFile(t, dir, "a/b.txt", "hello")
	if err := os.Symlink("b.txt", filepath.Join(dir, "a", "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	before := SnapshotTree(t, dir)
	if before["a"] != "dir" {
		t.Errorf("a = %q, want dir", before["a"])
	}
	if before["a/link"] != "link:b.txt" {
		t.Errorf("a/link = %q, want link:b.txt", before["a/link"])
	}

	WriteFile(t, dir, "a/b.txt", "changed")
	after := SnapshotTree(t, dir)
	if before["a/b.txt"] == after["a/b.txt"] {
		t.Error("content change not reflected in snapshot")
	}
}

func TestSnapshotTree_Missing(t *testing.T) {
	snap := SnapshotTree(t, filepath.Join(t.TempDir(), "absent"))
	if len(snap) != 0 {
		t.Errorf("snapshot of missing dir = %v, want empty", snap)
	}
}

func TestNewPackageRoot(t *testing.T) {
	root := NewPackageRoot(t)
	if got := ReadFile(t, root, "INSTRUCTIONS.md"); got != PackageFiles["INSTRUCTIONS.md"] {
		t.Errorf("INSTRUCTIONS.md = %q", got)
	}
}

func TestTestLogger_WarningCode(t *testing.T) {
	tl := NewTestLogger(t)
	tl.Logger.With("profile", "claude").Warn("source missing", "code", "SOURCE_001")
	tl.Logger.Debug("noise")

	tl.AssertWarningCode(t, "SOURCE_001")
	warnings := tl.Warnings()
	if len(warnings) != 1 || warnings[0].Attrs["profile"] != "claude" {
		t.Errorf("Warnings() = %v, want one entry with profile=claude", warnings)
	}
	if len(tl.entries) != 2 {
		t.Errorf("recorded %d entries, want 2 (debug included)", len(tl.entries))
	}
}

func TestTestLogger_GroupPrefixesKeys(t *testing.T) {
	tl := NewTestLogger(t)
	tl.Logger.WithGroup("install").With("id", "abc").Info("saved", "path", "x")

	tl.AssertNoWarnings(t)
	attrs := tl.entries[0].Attrs
	if attrs["install.id"] != "abc" || attrs["install.path"] != "x" {
		t.Errorf("attrs = %v, want install.id and install.path", attrs)
	}
}

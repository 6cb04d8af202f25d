package installer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/lock"
	"github.com/sage-kit/sage/internal/manifest"
	"github.com/sage-kit/sage/internal/status"
	"github.com/sage-kit/sage/internal/testutil"
)

type harness struct {
	cfg    *config.Config
	target string
	logs   *testutil.TestLogger
	out    *bytes.Buffer
	inst   *Installer
}

func newHarness(t *testing.T, profileName string) *harness {
	t.Helper()
	cfg := testutil.NewTestConfig(t, profileName)
	h := &harness{
		cfg:    cfg,
		target: filepath.Join(cfg.HomeDir, "."+profileName),
		logs:   testutil.NewTestLogger(t),
		out:    &bytes.Buffer{},
	}
	h.rebuild()
	return h
}

// rebuild recreates the installer after cfg changes.
func (h *harness) rebuild() {
	h.inst = New(h.cfg, h.logs.Logger, status.NewReporter(h.out, status.FormatOptions{NoColor: true, DryRun: h.cfg.DryRun}))
	h.inst.NewID = func() string { return "test-install-id" }
}

func readSettings(t *testing.T, target string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFile(t, target, "settings.json")), &doc))
	return doc
}

func TestInstall_FreshClaude(t *testing.T) {
	h := newHarness(t, "claude")

	m, err := h.inst.Install()
	require.NoError(t, err)

	assert.Equal(t, "test-install-id", m.ID)
	assert.Equal(t, "claude", m.Target)
	assert.Equal(t, "0.0.0", m.Version)
	assert.Equal(t, testutil.FixedTime, m.Timestamp)
	assert.Equal(t, []string{
		"CLAUDE.md", "output-styles", "skills", "commands",
		"settings.json", config.UninstallerName(),
	}, m.Installed)
	assert.Empty(t, m.Backups)

	assert.Equal(t, testutil.PackageFiles["INSTRUCTIONS.md"], testutil.ReadFile(t, h.target, "CLAUDE.md"))
	assert.Equal(t, testutil.PackageFiles["skills/review/SKILL.md"], testutil.ReadFile(t, h.target, "skills/review/SKILL.md"))
	assert.Equal(t, "sage", readSettings(t, h.target)["outputStyle"])

	onDisk, err := manifest.NewStore(h.target).Load()
	require.NoError(t, err)
	assert.Equal(t, m, onDisk)

	assert.NoFileExists(t, filepath.Join(h.target, config.LockFileName))
	h.logs.AssertNoWarnings(t)
}

func TestInstall_ExcludesAtEveryDepth(t *testing.T) {
	h := newHarness(t, "claude")

	_, err := h.inst.Install()
	require.NoError(t, err)

	for _, rel := range []string{
		"skills/review/scripts/__pycache__",
		"skills/review/.DS_Store",
		"skills/plan/.git",
		"skills/plan/node_modules",
		"commands/.pytest_cache",
	} {
		assert.NoFileExists(t, filepath.Join(h.target, rel))
		assert.NoDirExists(t, filepath.Join(h.target, rel))
	}
	assert.FileExists(t, filepath.Join(h.target, "skills/review/scripts/check.py"))
}

func TestInstall_ManifestCompleteness(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.target, "CLAUDE.md", "mine\n")
	testutil.WriteFile(t, h.target, "skills/own/SKILL.md", "own\n")

	m, err := h.inst.Install()
	require.NoError(t, err)

	for _, rel := range m.Installed {
		assert.True(t, fileExists(filepath.Join(h.target, rel)), "installed %s missing", rel)
	}
	for _, rel := range m.Backups {
		assert.True(t, fileExists(filepath.Join(config.BackupDir(h.target), rel)), "backup %s missing", rel)
	}
	assert.Equal(t, []string{"CLAUDE.md", "skills"}, m.Backups)
}

func fileExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

func TestInstall_Codex(t *testing.T) {
	h := newHarness(t, "codex")

	m, err := h.inst.Install()
	require.NoError(t, err)

	assert.Equal(t, []string{"AGENTS.md", "skills", "prompts", "settings.json", config.UninstallerName()}, m.Installed)
	assert.NoDirExists(t, filepath.Join(h.target, "output-styles"))
	assert.FileExists(t, filepath.Join(h.target, "prompts", "ship.md"))
	assert.Empty(t, readSettings(t, h.target))
}

func TestInstall_MergesExistingSettings(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.target, "settings.json", `{"foo":"bar"}`)

	m, err := h.inst.Install()
	require.NoError(t, err)

	doc := readSettings(t, h.target)
	assert.Equal(t, "bar", doc["foo"])
	assert.Equal(t, "sage", doc["outputStyle"])
	assert.Contains(t, m.Backups, "settings.json")
	assert.Equal(t, `{"foo":"bar"}`, testutil.ReadFile(t, config.BackupDir(h.target), "settings.json"))
	assert.True(t, strings.HasSuffix(testutil.ReadFile(t, h.target, "settings.json"), "}\n"))
}

func TestInstall_MalformedSettingsWarns(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.target, "settings.json", "{not json")

	m, err := h.inst.Install()
	require.NoError(t, err)

	h.logs.AssertWarningCode(t, serrors.CodeSettingsMalformed)
	assert.Equal(t, map[string]any{"outputStyle": "sage"}, readSettings(t, h.target))
	assert.Contains(t, m.Backups, "settings.json")
	assert.Equal(t, "{not json", testutil.ReadFile(t, config.BackupDir(h.target), "settings.json"))
}

func TestInstall_BackupIsByteIdentical(t *testing.T) {
	h := newHarness(t, "claude")
	original := "line one\r\nline two\x00\xff\n"
	testutil.WriteFile(t, h.target, "CLAUDE.md", original)

	_, err := h.inst.Install()
	require.NoError(t, err)

	assert.Equal(t, original, testutil.ReadFile(t, config.BackupDir(h.target), "CLAUDE.md"))
	assert.Equal(t, testutil.PackageFiles["INSTRUCTIONS.md"], testutil.ReadFile(t, h.target, "CLAUDE.md"))
}

func TestInstall_TwiceBacksUpFirstRun(t *testing.T) {
	h := newHarness(t, "claude")

	first, err := h.inst.Install()
	require.NoError(t, err)
	firstTree := testutil.SnapshotTree(t, filepath.Join(h.target, "skills"))

	second, err := h.inst.Install()
	require.NoError(t, err)

	assert.Equal(t, first.Installed, second.Installed)
	for _, rel := range first.Installed {
		assert.Contains(t, second.Backups, rel)
	}
	assert.Equal(t, firstTree, testutil.SnapshotTree(t, filepath.Join(h.target, "skills")))
	assert.Equal(t, "sage", readSettings(t, h.target)["outputStyle"])
}

func TestInstall_MissingSourceIsSkipped(t *testing.T) {
	h := newHarness(t, "claude")
	require.NoError(t, os.RemoveAll(filepath.Join(h.cfg.PackageRoot, "commands")))
	testutil.WriteFile(t, h.target, "commands/mine.md", "keep me\n")

	m, err := h.inst.Install()
	require.NoError(t, err)

	h.logs.AssertWarningCode(t, serrors.CodeSourceMissing)
	assert.NotContains(t, m.Installed, "commands")
	assert.NotContains(t, m.Backups, "commands")
	assert.Equal(t, "keep me\n", testutil.ReadFile(t, h.target, "commands/mine.md"))
	assert.Contains(t, h.out.String(), "Skipping")
}

func TestInstall_InvalidProfileMutatesNothing(t *testing.T) {
	for _, name := range []string{"", "vim"} {
		t.Run("profile="+name, func(t *testing.T) {
			h := newHarness(t, "claude")
			h.cfg.Profile = name
			h.rebuild()
			before := testutil.SnapshotTree(t, h.cfg.HomeDir)

			_, err := h.inst.Install()
			require.Error(t, err)
			assert.True(t, serrors.HasCode(err, serrors.CodeConfigInvalidProfile), "got %v", err)
			assert.Equal(t, before, testutil.SnapshotTree(t, h.cfg.HomeDir))
			assert.Empty(t, h.out.String())
		})
	}
}

func TestInstall_InvalidBundleMutatesNothing(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.cfg.PackageRoot, "sage.toml", `
[[entries]]
source = "skills"
dest = { claude = "../escape" }
`)
	before := testutil.SnapshotTree(t, h.cfg.HomeDir)

	_, err := h.inst.Install()
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CodeConfigInvalidValue), "got %v", err)
	assert.Equal(t, before, testutil.SnapshotTree(t, h.cfg.HomeDir))
}

func TestInstall_Descriptor(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.cfg.PackageRoot, "sage.toml", `
[package]
name = "sage"
version = "2.1.0"
exclude = ["SKILL"]

[[entries]]
source = "skills"
[entries.dest]
claude = "sage/skills"
`)

	m, err := h.inst.Install()
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", m.Version)
	assert.Equal(t, []string{"sage/skills", "settings.json", config.UninstallerName()}, m.Installed)
	assert.FileExists(t, filepath.Join(h.target, "sage/skills/review/scripts/check.py"))
	assert.NoFileExists(t, filepath.Join(h.target, "sage/skills/review/SKILL.md"))
	// a custom exclude list replaces the defaults
	assert.FileExists(t, filepath.Join(h.target, "sage/skills/review/.DS_Store"))

	h.cfg.Version = "9.9.9"
	m, err = h.inst.Install()
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", m.Version)
}

func TestInstall_DefaultVersion(t *testing.T) {
	h := newHarness(t, "claude")
	h.inst.DefaultVersion = "1.2.3"

	m, err := h.inst.Install()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", m.Version)
}

func TestInstall_UninstallerIsExecutableCopy(t *testing.T) {
	h := newHarness(t, "claude")

	_, err := h.inst.Install()
	require.NoError(t, err)

	dst := filepath.Join(h.target, config.UninstallerName())
	exe, err := os.ReadFile(h.cfg.Executable)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, exe, got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestInstall_LockHeld(t *testing.T) {
	h := newHarness(t, "claude")
	lk := lock.New(h.target)
	require.NoError(t, lk.Acquire())
	t.Cleanup(func() { _ = lk.Release() })

	_, err := h.inst.Install()
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CodeLockHeld), "got %v", err)
	assert.NoFileExists(t, filepath.Join(h.target, "CLAUDE.md"))
}

func TestInstall_DryRunMutatesNothing(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.target, "CLAUDE.md", "mine\n")
	h.cfg.DryRun = true
	h.rebuild()
	before := testutil.SnapshotTree(t, h.cfg.HomeDir)

	m, err := h.inst.Install()
	require.NoError(t, err)

	assert.Equal(t, before, testutil.SnapshotTree(t, h.cfg.HomeDir))
	assert.Equal(t, []string{"CLAUDE.md"}, m.Backups)
	assert.Contains(t, m.Installed, "settings.json")
	assert.Contains(t, h.out.String(), "[dry-run] Backing up CLAUDE.md")
	assert.Contains(t, h.out.String(), "[dry-run] Installing skills")
}

func TestInstall_ProgressPrecedesEachStep(t *testing.T) {
	h := newHarness(t, "claude")
	testutil.WriteFile(t, h.target, "CLAUDE.md", "mine\n")

	_, err := h.inst.Install()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(h.out.String(), "\n"), "\n")
	index := func(line string) int {
		for i, l := range lines {
			if l == line {
				return i
			}
		}
		t.Fatalf("line %q not printed:\n%s", line, h.out.String())
		return -1
	}

	assert.Less(t, index("Backing up CLAUDE.md"), index("Installing CLAUDE.md"))
	assert.Less(t, index("Installing CLAUDE.md"), index("Writing    settings.json"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "✓ installed Claude Code 0.0.0"))
}

// Package installer copies a content bundle into a profile's target
// directory, backing up whatever it replaces and recording a manifest that
// the uninstaller later replays.
package installer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sage-kit/sage/internal/bundle"
	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/fsutil"
	"github.com/sage-kit/sage/internal/lock"
	"github.com/sage-kit/sage/internal/logging"
	"github.com/sage-kit/sage/internal/manifest"
	"github.com/sage-kit/sage/internal/profile"
	"github.com/sage-kit/sage/internal/settings"
	"github.com/sage-kit/sage/internal/status"
)

// Installer runs one install.
type Installer struct {
	cfg    *config.Config
	logger *slog.Logger
	report *status.Reporter

	// DefaultVersion is recorded when neither the config nor the bundle
	// names a version.
	DefaultVersion string

	// NewID generates the install id.
	NewID func() string
}

// New creates an installer. A nil logger discards logs and a nil reporter
// discards progress.
func New(cfg *config.Config, logger *slog.Logger, report *status.Reporter) *Installer {
	if logger == nil {
		logger = logging.NewForTest()
	}
	if report == nil {
		report = status.NewReporter(nil, status.FormatOptions{})
	}
	return &Installer{
		cfg:            cfg,
		logger:         logger,
		report:         report,
		DefaultVersion: "0.0.0",
		NewID:          uuid.NewString,
	}
}

// run carries the state of one install.
type run struct {
	*Installer
	profile   profile.Profile
	targetDir string
	backupDir string
	bundle    *bundle.Bundle
	excluder  *fsutil.Excluder
	manifest  *manifest.Manifest
	store     *manifest.Store
	logger    *slog.Logger
}

// Install performs the install and returns the manifest it wrote. Nothing is
// touched until the profile and the bundle descriptor have been validated.
//
// Failures after that point abort the run without rolling back: the manifest
// on disk always lists what did succeed, and running Install again is safe.
func (i *Installer) Install() (*manifest.Manifest, error) {
	r, err := i.prepare()
	if err != nil {
		return nil, err
	}

	if i.cfg.DryRun {
		r.plan()
		return r.manifest, nil
	}

	r.report.Step(status.ActionCreate, r.targetDir)
	if err := os.MkdirAll(r.targetDir, 0755); err != nil {
		return nil, serrors.IOWriteError(r.targetDir, err)
	}
	if err := os.MkdirAll(r.backupDir, 0755); err != nil {
		return nil, serrors.IOWriteError(r.backupDir, err)
	}

	lk := lock.New(r.targetDir)
	if err := lk.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lk.Release(); err != nil {
			r.logger.Warn("failed to release lock", "path", lk.Path(), "error", err)
		}
	}()

	for _, pair := range r.bundle.Pairs(r.profile.Name) {
		if err := r.installPair(pair); err != nil {
			return r.manifest, err
		}
	}

	if err := r.mergeSettings(); err != nil {
		return r.manifest, err
	}

	r.report.Step(status.ActionWrite, path.Join(config.BackupDirName, config.ManifestFileName))
	if err := r.store.Save(r.manifest); err != nil {
		return r.manifest, err
	}

	if err := r.writeUninstaller(); err != nil {
		return r.manifest, err
	}

	r.report.Done("installed %s %s into %s (%d paths, %d backups)",
		r.profile.DisplayName, r.manifest.Version, r.targetDir,
		len(r.manifest.Installed), len(r.manifest.Backups))
	r.logger.Info("install complete", "installed", len(r.manifest.Installed), "backups", len(r.manifest.Backups))
	return r.manifest, nil
}

func (i *Installer) prepare() (*run, error) {
	p, err := profile.Lookup(i.cfg.Profile)
	if err != nil {
		return nil, err
	}
	if err := i.cfg.Validate(); err != nil {
		return nil, err
	}
	targetDir, err := i.cfg.ResolveTargetDir()
	if err != nil {
		return nil, err
	}

	b, err := bundle.LoadFromDir(i.cfg.PackageRoot)
	if err != nil {
		return nil, serrors.Wrap(serrors.CodeConfigInvalidValue, "cannot read bundle descriptor", err).
			WithDetail("package_root", i.cfg.PackageRoot)
	}
	if result := b.Validate(); result.HasErrors() {
		return nil, serrors.ConfigInvalidValue(bundle.DescriptorName, i.cfg.PackageRoot, result.Error())
	}

	version := i.cfg.Version
	if version == "" {
		version = b.Package.Version
	}
	if version == "" {
		version = i.DefaultVersion
	}

	id := i.NewID()
	logger := logging.WithInstall(logging.WithProfile(i.logger, p.Name, targetDir), id)
	logger.Debug("install prepared", "package_root", i.cfg.PackageRoot, "version", version)

	return &run{
		Installer: i,
		profile:   p,
		targetDir: targetDir,
		backupDir: config.BackupDir(targetDir),
		bundle:    b,
		excluder:  b.Excluder(),
		manifest:  manifest.New(id, version, p.Name, i.cfg.Timestamp()),
		store:     manifest.NewStore(targetDir),
		logger:    logger,
	}, nil
}

// installPair backs up the destination, replaces it with the source and
// records both. A source missing from the package is logged and skipped
// before anything is moved.
func (r *run) installPair(pair bundle.Pair) error {
	src := filepath.Join(r.cfg.PackageRoot, filepath.FromSlash(pair.Source))
	dst := filepath.Join(r.targetDir, filepath.FromSlash(pair.Dest))

	if !fsutil.Exists(src) {
		r.skipMissing(pair)
		return nil
	}

	if err := r.backup(pair.Dest); err != nil {
		return err
	}

	r.report.Step(status.ActionInstall, pair.Dest)
	if err := fsutil.RemoveAll(dst); err != nil {
		return serrors.IORemoveError(dst, err)
	}
	if err := fsutil.CopyTree(src, dst, r.excluder); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !fsutil.Exists(src) {
			r.skipMissing(pair)
			return nil
		}
		return serrors.IOCopyError(src, dst, err)
	}
	r.manifest.AddInstalled(pair.Dest)
	r.logger.Debug("installed", "source", pair.Source, "dest", pair.Dest)

	return r.store.Save(r.manifest)
}

func (r *run) skipMissing(pair bundle.Pair) {
	err := serrors.SourceMissing(pair.Source)
	r.report.Step(status.ActionSkip, pair.Dest)
	r.logger.Warn("source missing from package, skipping",
		"code", err.Code, "source", pair.Source, "dest", pair.Dest)
}

// backup moves an existing destination into the backup directory, replacing
// any earlier backup of the same path, and saves the manifest before anything
// else can fail.
func (r *run) backup(rel string) error {
	dst := filepath.Join(r.targetDir, filepath.FromSlash(rel))
	if !fsutil.Exists(dst) {
		return nil
	}

	saved := filepath.Join(r.backupDir, filepath.FromSlash(rel))
	r.report.Step(status.ActionBackup, rel)
	if err := fsutil.Move(dst, saved); err != nil {
		return serrors.IOCopyError(dst, saved, err)
	}
	r.manifest.AddBackup(rel)
	r.logger.Debug("backed up", "path", rel)

	// The original now lives only under the backup directory.
	return r.store.Save(r.manifest)
}

// mergeSettings loads settings.json, backs it up, sets the profile's keys
// and writes it back. A malformed file is replaced by empty settings.
func (r *run) mergeSettings() error {
	settingsPath := filepath.Join(r.targetDir, config.SettingsFileName)

	s, _, err := settings.Load(settingsPath)
	if err != nil {
		if !serrors.HasCode(err, serrors.CodeSettingsMalformed) {
			return err
		}
		r.logger.Warn("settings file is not valid JSON, starting from empty settings",
			"code", serrors.Code(err), "path", settingsPath, "error", errors.Unwrap(err))
	}

	if err := r.backup(config.SettingsFileName); err != nil {
		return err
	}

	changed := s.Apply(r.profile)
	r.logger.Debug("merged settings", "keys", changed)

	r.report.Step(status.ActionWrite, config.SettingsFileName)
	if err := settings.Save(settingsPath, s); err != nil {
		return err
	}
	r.manifest.AddInstalled(config.SettingsFileName)
	return nil
}

// writeUninstaller copies the running executable into the target under the
// uninstaller name. An uninstaller left by an earlier install is backed up
// like any other replaced path.
func (r *run) writeUninstaller() error {
	name := config.UninstallerName()
	dst := filepath.Join(r.targetDir, name)

	if err := r.backup(name); err != nil {
		return err
	}

	r.report.Step(status.ActionWrite, name)
	if err := fsutil.CopyTree(r.cfg.Executable, dst, nil); err != nil {
		return serrors.IOCopyError(r.cfg.Executable, dst, err)
	}
	if err := os.Chmod(dst, 0755); err != nil {
		return serrors.IOWriteError(dst, err)
	}

	r.manifest.AddInstalled(name)
	return r.store.Save(r.manifest)
}

// plan reports every action Install would take and fills the manifest with
// the paths it would record. Nothing is written.
func (r *run) plan() {
	r.report.Step(status.ActionCreate, r.targetDir)

	for _, pair := range r.bundle.Pairs(r.profile.Name) {
		src := filepath.Join(r.cfg.PackageRoot, filepath.FromSlash(pair.Source))
		if !fsutil.Exists(src) {
			r.skipMissing(pair)
			continue
		}
		r.planBackup(pair.Dest)
		r.report.Step(status.ActionInstall, pair.Dest)
		r.manifest.AddInstalled(pair.Dest)
	}

	r.planBackup(config.SettingsFileName)
	r.report.Step(status.ActionWrite, config.SettingsFileName)
	r.manifest.AddInstalled(config.SettingsFileName)

	r.report.Step(status.ActionWrite, path.Join(config.BackupDirName, config.ManifestFileName))

	name := config.UninstallerName()
	r.planBackup(name)
	r.report.Step(status.ActionWrite, name)
	r.manifest.AddInstalled(name)

	r.report.Done("would install %s %s into %s", r.profile.DisplayName, r.manifest.Version, r.targetDir)
}

func (r *run) planBackup(rel string) {
	if fsutil.Exists(filepath.Join(r.targetDir, filepath.FromSlash(rel))) {
		r.report.Step(status.ActionBackup, rel)
		r.manifest.AddBackup(rel)
	}
}

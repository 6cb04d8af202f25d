// Package uninstaller reverses an install by replaying its manifest.
package uninstaller

import (
	"log/slog"
	"path/filepath"

	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/fsutil"
	"github.com/sage-kit/sage/internal/lock"
	"github.com/sage-kit/sage/internal/logging"
	"github.com/sage-kit/sage/internal/manifest"
	"github.com/sage-kit/sage/internal/status"
)

// Uninstaller runs one uninstall against a target directory.
type Uninstaller struct {
	cfg    *config.Config
	logger *slog.Logger
	report *status.Reporter

	targetDir string
	backupDir string
	selfName  string
	record    *manifest.Manifest

	// removeSelfFile deletes the uninstaller executable.
	removeSelfFile func(path string) error
}

// New creates an uninstaller. A nil logger discards logs and a nil reporter
// discards progress.
func New(cfg *config.Config, logger *slog.Logger, report *status.Reporter) *Uninstaller {
	if logger == nil {
		logger = logging.NewForTest()
	}
	if report == nil {
		report = status.NewReporter(nil, status.FormatOptions{})
	}
	return &Uninstaller{
		cfg:            cfg,
		logger:         logger,
		report:         report,
		selfName:       config.UninstallerName(),
		removeSelfFile: fsutil.RemoveAll,
	}
}

// Uninstall reads the manifest and undoes the install it describes. The
// phases run in a fixed order: installed paths are removed before backups
// are restored, so a path in both lists ends up with its original content,
// and the uninstaller removes itself last so any earlier failure leaves it
// in place for a retry.
//
// A missing or malformed manifest fails before anything is touched.
func (u *Uninstaller) Uninstall() error {
	targetDir, err := u.cfg.ResolveTargetDir()
	if err != nil {
		return err
	}
	u.targetDir = targetDir
	u.backupDir = config.BackupDir(targetDir)

	if err := u.loadRecord(); err != nil {
		return err
	}
	u.logger = logging.WithInstall(logging.WithProfile(u.logger, u.record.Target, u.targetDir), u.record.ID)

	if u.cfg.DryRun {
		u.plan()
		return nil
	}

	lk := lock.New(u.targetDir)
	if err := lk.Acquire(); err != nil {
		return err
	}
	released := false
	defer func() {
		if !released {
			_ = lk.Release()
		}
	}()

	if err := u.reverseInstalled(); err != nil {
		return err
	}
	if err := u.restoreBackups(); err != nil {
		return err
	}
	if err := u.removeBackupDir(); err != nil {
		return err
	}

	released = true
	if err := lk.Release(); err != nil {
		u.logger.Warn("failed to release lock", "path", lk.Path(), "error", err)
	}

	u.removeSelf()

	u.report.Done("uninstalled %s %s from %s", u.record.Target, u.record.Version, u.targetDir)
	u.logger.Info("uninstall complete")
	return nil
}

func (u *Uninstaller) loadRecord() error {
	m, err := manifest.NewStore(u.targetDir).Load()
	if err != nil {
		return err
	}
	u.record = m
	u.logger.Debug("loaded installation record",
		"installed", len(m.Installed), "backups", len(m.Backups))
	return nil
}

// reverseInstalled removes every recorded install that is still present.
// The uninstaller itself is left for removeSelf.
func (u *Uninstaller) reverseInstalled() error {
	for _, rel := range u.record.Installed {
		if rel == u.selfName {
			continue
		}
		p, err := fsutil.Within(u.targetDir, rel)
		if err != nil {
			return serrors.RecordMalformed(config.ManifestPath(u.targetDir), err)
		}
		if !fsutil.Exists(p) {
			u.logger.Debug("installed path already gone", "path", rel)
			continue
		}

		u.report.Step(status.ActionRemove, rel)
		if err := fsutil.RemoveAll(p); err != nil {
			return serrors.IORemoveError(p, err)
		}
	}
	return nil
}

// restoreBackups moves every backup that exists back into the target,
// replacing whatever is there.
func (u *Uninstaller) restoreBackups() error {
	for _, rel := range u.record.Backups {
		if rel == u.selfName {
			continue
		}
		saved, err := fsutil.Within(u.backupDir, rel)
		if err != nil {
			return serrors.RecordMalformed(config.ManifestPath(u.targetDir), err)
		}
		if !fsutil.Exists(saved) {
			u.logger.Warn("backup missing, cannot restore", "path", rel)
			continue
		}
		dst, err := fsutil.Within(u.targetDir, rel)
		if err != nil {
			return serrors.RecordMalformed(config.ManifestPath(u.targetDir), err)
		}

		u.report.Step(status.ActionRestore, rel)
		if err := fsutil.Move(saved, dst); err != nil {
			return serrors.IOCopyError(saved, dst, err)
		}
	}
	return nil
}

func (u *Uninstaller) removeBackupDir() error {
	u.report.Step(status.ActionRemove, config.BackupDirName)
	if err := fsutil.RemoveAll(u.backupDir); err != nil {
		return serrors.IORemoveError(u.backupDir, err)
	}
	return nil
}

// removeSelf deletes the uninstaller executable. Failing here does not fail
// the run; Windows, for one, will not delete a running image.
func (u *Uninstaller) removeSelf() {
	self := filepath.Join(u.targetDir, u.selfName)
	if !fsutil.Exists(self) {
		return
	}

	u.report.Step(status.ActionRemove, u.selfName)
	if err := u.removeSelfFile(self); err != nil {
		u.logger.Warn("could not remove uninstaller, delete it manually",
			"code", serrors.CodeIORemoveError, "path", self, "error", err)
		u.report.Note("remove %s manually to finish", self)
	}
}

// plan reports what Uninstall would do.
func (u *Uninstaller) plan() {
	for _, rel := range u.record.Installed {
		if rel == u.selfName {
			continue
		}
		if p, err := fsutil.Within(u.targetDir, rel); err == nil && fsutil.Exists(p) {
			u.report.Step(status.ActionRemove, rel)
		}
	}
	for _, rel := range u.record.Backups {
		if rel == u.selfName {
			continue
		}
		if p, err := fsutil.Within(u.backupDir, rel); err == nil && fsutil.Exists(p) {
			u.report.Step(status.ActionRestore, rel)
		}
	}
	u.report.Step(status.ActionRemove, config.BackupDirName)
	if fsutil.Exists(filepath.Join(u.targetDir, u.selfName)) {
		u.report.Step(status.ActionRemove, u.selfName)
	}
	u.report.Done("would uninstall %s %s from %s", u.record.Target, u.record.Version, u.targetDir)
}

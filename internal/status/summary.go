package status

import (
	"time"

	"github.com/sage-kit/sage/internal/config"
	"github.com/sage-kit/sage/internal/fsutil"
	"github.com/sage-kit/sage/internal/manifest"
)

// RecordSummary describes an installation record and how much of it is still
// on disk.
type RecordSummary struct {
	TargetDir string    `json:"target_dir" yaml:"target_dir"`
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Profile   string    `json:"profile" yaml:"profile"`
	Version   string    `json:"version" yaml:"version"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Installed []string  `json:"installed" yaml:"installed"`
	Backups   []string  `json:"backups" yaml:"backups"`

	// Missing lists installed paths that are no longer present.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	// MissingBackups lists backups that are no longer in the backup directory.
	MissingBackups []string `json:"missing_backups,omitempty" yaml:"missing_backups,omitempty"`
}

// NewRecordSummary checks a manifest against the target directory.
func NewRecordSummary(targetDir string, m *manifest.Manifest) *RecordSummary {
	s := &RecordSummary{
		TargetDir: targetDir,
		ID:        m.ID,
		Profile:   m.Target,
		Version:   m.Version,
		Timestamp: m.Timestamp,
		Installed: m.Installed,
		Backups:   m.Backups,
	}

	backupDir := config.BackupDir(targetDir)
	for _, rel := range m.Installed {
		if p, err := fsutil.Within(targetDir, rel); err != nil || !fsutil.Exists(p) {
			s.Missing = append(s.Missing, rel)
		}
	}
	for _, rel := range m.Backups {
		if p, err := fsutil.Within(backupDir, rel); err != nil || !fsutil.Exists(p) {
			s.MissingBackups = append(s.MissingBackups, rel)
		}
	}
	return s
}

// Intact reports whether every recorded path is still present.
func (s *RecordSummary) Intact() bool {
	return len(s.Missing) == 0 && len(s.MissingBackups) == 0
}

// Package manifest records what an install wrote and what it moved aside, and
// persists that record under the target's backup directory.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/fsutil"
)

// Manifest is the persisted record of one installation. Paths are relative
// to the target directory and use forward slashes.
type Manifest struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Version   string    `json:"version" yaml:"version"`
	Target    string    `json:"target" yaml:"target"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Installed []string  `json:"installed" yaml:"installed"`
	Backups   []string  `json:"backups" yaml:"backups"`
}

// New creates an empty manifest.
func New(id, version, target string, ts time.Time) *Manifest {
	return &Manifest{
		ID:        id,
		Version:   version,
		Target:    target,
		Timestamp: ts,
		Installed: []string{},
		Backups:   []string{},
	}
}

// AddInstalled records a path the install wrote. Repeats are ignored.
func (m *Manifest) AddInstalled(rel string) {
	m.Installed = appendUnique(m.Installed, filepath.ToSlash(rel))
}

// AddBackup records a path the install moved aside. Repeats are ignored.
func (m *Manifest) AddBackup(rel string) {
	m.Backups = appendUnique(m.Backups, filepath.ToSlash(rel))
}

// Validate rejects records whose paths would reach outside the target.
func (m *Manifest) Validate() error {
	for _, list := range [][]string{m.Installed, m.Backups} {
		for _, rel := range list {
			if _, err := fsutil.Within("target", rel); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// Store manages <target>/.sage-backup/manifest.json
type Store struct {
	path string
}

// NewStore creates a store for a target directory.
func NewStore(targetDir string) *Store {
	return &Store{path: config.ManifestPath(targetDir)}
}

// NewStoreWithPath creates a store at a custom path (for testing)
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a manifest file is present.
func (s *Store) Exists() bool {
	return fsutil.Exists(s.path)
}

// Load reads the manifest. A missing file is a missing-record error and an
// unparsable or unsafe one is a malformed-record error.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, serrors.RecordMissing(s.path)
	}
	if err != nil {
		return nil, serrors.IOReadError(s.path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, serrors.RecordMalformed(s.path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, serrors.RecordMalformed(s.path, err)
	}
	if m.Installed == nil {
		m.Installed = []string{}
	}
	if m.Backups == nil {
		m.Backups = []string{}
	}

	return &m, nil
}

// Save writes the manifest, replacing any previous one.
func (s *Store) Save(m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return serrors.IOWriteError(filepath.Dir(s.path), err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return serrors.IOWriteError(s.path, err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return serrors.IOWriteError(tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return serrors.IOWriteError(s.path, err)
	}

	return nil
}

// Package profile defines the installation profiles sage knows how to target.
package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	serrors "github.com/sage-kit/sage/internal/errors"
)

// Profile describes one AI harness configuration directory.
type Profile struct {
	// Name is the selector used on the command line (e.g., "claude").
	Name string

	// DisplayName is the human-readable harness name (e.g., "Claude Code").
	DisplayName string

	// DirName is the dot-directory under the user's home (e.g., ".claude").
	DirName string

	// OutputStyle is written to settings.json as "outputStyle" when non-empty.
	OutputStyle string
}

// Known maps profile names to their configuration.
var Known = map[string]Profile{
	"claude": {
		Name:        "claude",
		DisplayName: "Claude Code",
		DirName:     ".claude",
		OutputStyle: "sage",
	},
	"codex": {
		Name:        "codex",
		DisplayName: "Codex CLI",
		DirName:     ".codex",
	},
}

// ListKnown returns the names of all known profiles in sorted order.
func ListKnown() []string {
	names := make([]string, 0, len(Known))
	for name := range Known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named profile, or a configuration error if it is unknown.
func Lookup(name string) (Profile, error) {
	p, ok := Known[name]
	if !ok {
		return Profile{}, serrors.InvalidProfile(name, ListKnown())
	}
	return p, nil
}

// TargetDir returns the profile's configuration directory under home.
func (p Profile) TargetDir(home string) string {
	return filepath.Join(ExpandPath(home), p.DirName)
}

// ExpandPath expands ~ at the start of a path to the user's home directory.
// If ~ is not at the start or home directory cannot be determined, returns path unchanged.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}

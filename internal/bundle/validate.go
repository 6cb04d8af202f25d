package bundle

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sage-kit/sage/internal/config"
	"github.com/sage-kit/sage/internal/fsutil"
	"github.com/sage-kit/sage/internal/profile"
)

// semverPattern matches X.Y.Z with optional pre-release/build suffix
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?$`)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidationResult holds validation errors.
type ValidationResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error implements the error interface.
func (r *ValidationResult) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var messages []string
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("validation failed with %d error(s):\n  - %s",
		len(r.Errors), strings.Join(messages, "\n  - "))
}

// Add appends a validation error.
func (r *ValidationResult) Add(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// reservedTopLevel are target entries sage manages itself.
var reservedTopLevel = map[string]bool{
	config.BackupDirName:     true,
	config.SettingsFileName:  true,
	config.LockFileName:      true,
	config.UninstallerStem:   true,
	config.UninstallerName(): true,
}

// Validate checks the descriptor for errors.
func (b *Bundle) Validate() *ValidationResult {
	result := &ValidationResult{}

	if b.Package.Version != "" && !semverPattern.MatchString(b.Package.Version) {
		result.Add("package.version", "must be semver format (X.Y.Z)")
	}
	if len(b.Entries) == 0 {
		result.Add("entries", "at least one entry is required")
	}

	seen := make(map[string]map[string]int) // profile -> dest -> entry index
	for i, e := range b.Entries {
		field := fmt.Sprintf("entries[%d]", i)
		if e.Source == "" {
			result.Add(field+".source", "is required")
		} else if _, err := fsutil.Within("package", e.Source); err != nil {
			result.Add(field+".source", err.Error())
		}
		if len(e.Dest) == 0 {
			result.Add(field+".dest", "must name at least one profile")
		}

		for name, dest := range e.Dest {
			destField := fmt.Sprintf("%s.dest.%s", field, name)
			if _, known := profile.Known[name]; !known {
				result.Add(destField, fmt.Sprintf("unknown profile (known: %v)", profile.ListKnown()))
				continue
			}
			if _, err := fsutil.Within("target", dest); err != nil {
				result.Add(destField, err.Error())
				continue
			}
			clean := path.Clean(dest)
			top := strings.SplitN(clean, "/", 2)[0]
			if reservedTopLevel[top] {
				result.Add(destField, fmt.Sprintf("%q is reserved by sage", top))
				continue
			}
			if seen[name] == nil {
				seen[name] = make(map[string]int)
			}
			if prev, dup := seen[name][clean]; dup {
				result.Add(destField, fmt.Sprintf("duplicates entries[%d]", prev))
				continue
			}
			if other, prev, ok := nestedDest(seen[name], clean); ok {
				result.Add(destField, fmt.Sprintf("overlaps entries[%d] (%s)", prev, other))
				continue
			}
			seen[name][clean] = i
		}
	}

	return result
}

// nestedDest finds a destination that contains dest or lies inside it.
// Installing one would back up the other's output over the user's backup.
func nestedDest(dests map[string]int, dest string) (string, int, bool) {
	for other, i := range dests {
		if strings.HasPrefix(dest+"/", other+"/") || strings.HasPrefix(other+"/", dest+"/") {
			return other, i, true
		}
	}
	return "", 0, false
}

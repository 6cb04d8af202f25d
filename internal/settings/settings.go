// Package settings reads, merges and writes the harness settings.json.
//
// Only a small set of keys is understood. Everything else is carried through
// untouched so that merging never drops configuration the user or another
// tool put there.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/profile"
)

// Recognized keys.
const (
	KeyOutputStyle = "outputStyle"
)

// RecognizedKeys lists every key Settings models explicitly.
var RecognizedKeys = []string{KeyOutputStyle}

// Settings is a settings.json document: recognized keys plus a passthrough
// bag for everything else.
type Settings struct {
	// OutputStyle is nil when the key is absent. An empty string is a
	// present key and is written back as such.
	OutputStyle *string

	// Extra holds unrecognized keys verbatim, and recognized keys whose
	// value has an unexpected type.
	Extra map[string]json.RawMessage
}

// New returns empty settings.
func New() *Settings {
	return &Settings{Extra: make(map[string]json.RawMessage)}
}

// UnmarshalJSON implements json.Unmarshaler. The document must be an object.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("settings must be a JSON object")
	}

	s.OutputStyle = nil
	s.Extra = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		s.Extra[k] = v
	}

	if v, ok := raw[KeyOutputStyle]; ok {
		var style string
		if err := json.Unmarshal(v, &style); err == nil {
			s.OutputStyle = &style
			delete(s.Extra, KeyOutputStyle)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s *Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+len(RecognizedKeys))
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.OutputStyle != nil {
		v, err := json.Marshal(*s.OutputStyle)
		if err != nil {
			return nil, err
		}
		out[KeyOutputStyle] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Keys returns every top-level key the document will contain, sorted.
func (s *Settings) Keys() []string {
	keys := make([]string, 0, len(s.Extra)+1)
	for k := range s.Extra {
		keys = append(keys, k)
	}
	if s.OutputStyle != nil {
		if _, dup := s.Extra[KeyOutputStyle]; !dup {
			keys = append(keys, KeyOutputStyle)
		}
	}
	sort.Strings(keys)
	return keys
}

// Apply sets the keys the profile owns and leaves every other key alone.
// It returns the keys it set.
func (s *Settings) Apply(p profile.Profile) []string {
	var set []string
	if p.OutputStyle != "" {
		style := p.OutputStyle
		s.OutputStyle = &style
		delete(s.Extra, KeyOutputStyle)
		set = append(set, KeyOutputStyle)
	}
	return set
}

// Load reads settings from path. It reports whether the file was present.
// A present but unparsable file yields empty settings together with a
// settings-malformed error the caller is expected to treat as a warning.
func Load(path string) (*Settings, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), false, nil
	}
	if err != nil {
		return nil, true, serrors.IOReadError(path, err)
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return New(), true, serrors.SettingsMalformed(path, err)
	}
	return s, true, nil
}

// Encode renders settings as two-space indented JSON with a trailing newline.
func Encode(s *Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes settings to path.
func Save(path string, s *Settings) error {
	data, err := Encode(s)
	if err != nil {
		return serrors.IOWriteError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return serrors.IOWriteError(filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return serrors.IOWriteError(path, err)
	}
	return nil
}

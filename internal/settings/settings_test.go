package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestUnmarshal_SplitsRecognizedKeys(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"outputStyle":"terse","foo":"bar","hooks":{"Stop":[]}}`), s))

	require.NotNil(t, s.OutputStyle)
	assert.Equal(t, "terse", *s.OutputStyle)
	assert.NotContains(t, s.Extra, KeyOutputStyle)
	assert.Contains(t, s.Extra, "foo")
	assert.Contains(t, s.Extra, "hooks")
}

func TestUnmarshal_WrongTypeStaysInExtra(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"outputStyle":42}`), s))

	assert.Nil(t, s.OutputStyle)
	assert.JSONEq(t, `42`, string(s.Extra[KeyOutputStyle]))

	data, err := Encode(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputStyle":42}`, string(data))
}

func TestUnmarshal_RejectsNonObject(t *testing.T) {
	for _, doc := range []string{`[]`, `"x"`, `null`, `3`} {
		s := New()
		assert.Error(t, json.Unmarshal([]byte(doc), s), "document %s", doc)
	}
}

func TestApply_ClaudeSetsOutputStyle(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"foo":"bar","outputStyle":"old"}`), s))

	set := s.Apply(profile.Known["claude"])
	assert.Equal(t, []string{KeyOutputStyle}, set)

	data, err := Encode(s)
	require.NoError(t, err)
	got := decode(t, data)
	assert.Equal(t, "bar", got["foo"])
	assert.Equal(t, "sage", got[KeyOutputStyle])
}

func TestApply_CodexLeavesDocumentAlone(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"foo":"bar","outputStyle":"mine"}`), s))

	set := s.Apply(profile.Known["codex"])
	assert.Empty(t, set)

	data, err := Encode(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar","outputStyle":"mine"}`, string(data))
}

func TestApply_CodexKeepsEmptyOutputStyle(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"outputStyle":"","foo":"bar"}`), s))

	assert.Empty(t, s.Apply(profile.Known["codex"]))
	assert.Equal(t, []string{"foo", KeyOutputStyle}, s.Keys())

	data, err := Encode(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputStyle":"","foo":"bar"}`, string(data))
}

func TestApply_ClaudeReplacesEmptyOutputStyle(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"outputStyle":""}`), s))

	s.Apply(profile.Known["claude"])

	data, err := Encode(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputStyle":"sage"}`, string(data))
}

func TestEncode_PrettyWithTrailingNewline(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"cmd":"a && b <c>","nested":{"x":[1,2]}}`), s))

	data, err := Encode(s)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, "\n  \"cmd\": \"a && b <c>\"")
	assert.Contains(t, text, "\n    \"x\": [")
}

func TestKeys(t *testing.T) {
	s := New()
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":2}`), s))
	style := "sage"
	s.OutputStyle = &style

	assert.Equal(t, []string{"alpha", KeyOutputStyle, "zeta"}, s.Keys())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		s, present, err := Load(filepath.Join(dir, "absent.json"))
		require.NoError(t, err)
		assert.False(t, present)
		assert.Empty(t, s.Keys())
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "valid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"foo":"bar"}`), 0644))

		s, present, err := Load(path)
		require.NoError(t, err)
		assert.True(t, present)
		assert.Equal(t, []string{"foo"}, s.Keys())
	})

	t.Run("malformed file falls back to empty", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"foo":`), 0644))

		s, present, err := Load(path)
		assert.True(t, serrors.HasCode(err, serrors.CodeSettingsMalformed), "got %v", err)
		assert.True(t, present)
		require.NotNil(t, s)
		assert.Empty(t, s.Keys())
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := New()
	style := "sage"
	s.OutputStyle = &style

	require.NoError(t, Save(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"outputStyle\": \"sage\"\n}\n", string(data))
}

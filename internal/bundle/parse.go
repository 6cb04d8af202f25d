package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DescriptorName is the bundle descriptor filename at the package root.
const DescriptorName = "sage.toml"

// Default returns the built-in bundle used when a package has no descriptor.
func Default() *Bundle {
	return &Bundle{
		Package: PackageMeta{Name: "sage"},
		Entries: []Entry{
			{Source: "INSTRUCTIONS.md", Dest: map[string]string{"claude": "CLAUDE.md", "codex": "AGENTS.md"}},
			{Source: "output-styles", Dest: map[string]string{"claude": "output-styles"}},
			{Source: "skills", Dest: map[string]string{"claude": "skills", "codex": "skills"}},
			{Source: "commands", Dest: map[string]string{"claude": "commands", "codex": "prompts"}},
		},
	}
}

// LoadFromDir loads the descriptor from a package root, falling back to the
// built-in bundle when the root has none.
func LoadFromDir(dir string) (*Bundle, error) {
	path := filepath.Join(dir, DescriptorName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return ParseFile(path)
}

// ParseFile parses a bundle descriptor from a file path.
func ParseFile(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle descriptor: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse parses a bundle descriptor from a reader.
func Parse(reader io.Reader) (*Bundle, error) {
	var b Bundle
	md, err := toml.NewDecoder(reader).Decode(&b)
	if err != nil {
		return nil, fmt.Errorf("decode bundle descriptor: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode bundle descriptor: unknown keys %s", strings.Join(keys, ", "))
	}

	return &b, nil
}

// ParseString parses a bundle descriptor from a string.
func ParseString(content string) (*Bundle, error) {
	return Parse(strings.NewReader(content))
}

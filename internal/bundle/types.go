package bundle

// Bundle represents a content bundle descriptor (sage.toml).
// A bundle lists the package paths sage copies into a target directory and
// where each one lands for every profile.
type Bundle struct {
	// Package contains metadata about the bundle
	Package PackageMeta `toml:"package"`

	// Entries are installed in order.
	Entries []Entry `toml:"entries"`
}

// PackageMeta contains metadata for the bundle.
type PackageMeta struct {
	// Name of the content package (optional)
	Name string `toml:"name,omitempty"`

	// Version is the semantic version recorded in the manifest (optional)
	Version string `toml:"version,omitempty"`

	// Exclude replaces the default list of name substrings skipped while
	// copying. Leave unset to keep the defaults.
	Exclude []string `toml:"exclude,omitempty"`
}

// Entry maps one package path to its per-profile destinations.
type Entry struct {
	// Source is relative to the package root, slash-separated.
	Source string `toml:"source"`

	// Dest maps profile name to a destination relative to the target
	// directory. A profile missing from Dest does not receive this entry.
	Dest map[string]string `toml:"dest"`
}

// Pair is an entry resolved for one profile.
type Pair struct {
	// Source is the slash-separated path relative to the package root.
	Source string

	// Dest is the slash-separated path relative to the target directory.
	Dest string
}

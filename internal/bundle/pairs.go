package bundle

import (
	"path"

	"github.com/sage-kit/sage/internal/fsutil"
)

// Pairs returns the entries that apply to a profile, in descriptor order.
// Entries with no destination for the profile are left out entirely.
func (b *Bundle) Pairs(profileName string) []Pair {
	var pairs []Pair
	for _, e := range b.Entries {
		dest, ok := e.Dest[profileName]
		if !ok || dest == "" {
			continue
		}
		pairs = append(pairs, Pair{Source: path.Clean(e.Source), Dest: path.Clean(dest)})
	}
	return pairs
}

// Excluder returns the copy exclusion policy for this bundle.
func (b *Bundle) Excluder() *fsutil.Excluder {
	if b.Package.Exclude != nil {
		return fsutil.NewExcluder(b.Package.Exclude)
	}
	return fsutil.NewExcluder(fsutil.DefaultExcludes)
}

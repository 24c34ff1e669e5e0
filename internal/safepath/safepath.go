// Package safepath resolves archive entry names to extraction paths without
// letting them escape the target directory.
package safepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/parcel/internal/contracts"
)

// Compile-time interface implementation check.
var _ contracts.PathResolver = (*Resolver)(nil)

// Resolver maps archive entry names onto a target directory.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the extraction path of the entry name under root.
//
// Both slash styles are accepted. A single leading separator and any volume
// or root component are dropped, so stored absolute names land inside root.
// With flatten set the result is root joined with the entry's base name.
// Otherwise the joined path is cleaned, and if it would leave root the entry
// degrades to its base name under root and escaped is true. Names whose base
// cannot name a file (empty, "." or "..") degrade to root itself; callers
// must not write a file there.
func (r *Resolver) Resolve(root, name string, flatten bool) (path string, escaped bool) {
	return Resolve(root, name, flatten)
}

// Resolve is the function form of Resolver.Resolve.
func Resolve(root, name string, flatten bool) (path string, escaped bool) {
	rel := relativize(name)

	if flatten {
		base, ok := baseName(rel)
		if !ok {
			return filepath.Clean(root), true
		}
		return filepath.Join(root, base), false
	}

	joined := filepath.Join(root, rel)
	if !containsTraversal(rel) || isWithinDir(joined, filepath.Clean(root)) {
		return joined, false
	}

	base, ok := baseName(rel)
	if !ok {
		return filepath.Clean(root), true
	}
	return filepath.Join(root, base), true
}

// Within reports whether path is lexically inside or equal to dir after
// cleaning both.
func Within(path, dir string) bool {
	return isWithinDir(filepath.Clean(path), filepath.Clean(dir))
}

// ContainsNull reports whether name holds a NUL byte.
func ContainsNull(name string) bool {
	return containsNull(name)
}

// relativize converts an entry name to a platform path relative to an
// arbitrary root.
func relativize(name string) string {
	sep := string(os.PathSeparator)
	p := strings.ReplaceAll(name, "\\", sep)
	p = strings.ReplaceAll(p, "/", sep)
	p = strings.TrimPrefix(p, sep)

	if vol := filepath.VolumeName(p); vol != "" {
		p = p[len(vol):]
	}
	return strings.TrimLeft(p, sep)
}

// baseName returns the last element of rel when it names a file.
func baseName(rel string) (string, bool) {
	base := filepath.Base(rel)
	switch base {
	case "", ".", "..", string(os.PathSeparator):
		return "", false
	}
	return base, true
}

func containsNull(path string) bool {
	return strings.IndexByte(path, 0) >= 0
}

// containsTraversal reports whether any element of path is "..", with either
// slash style.
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// isWithinDir reports whether the cleaned path is dir or below it. Relative
// dirs such as "." are compared lexically like absolute ones.
func isWithinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// Package format provides the format catalog and magic-byte detection.
package format

import (
	"slices"
	"strings"

	"github.com/meigma/parcel/core"
)

// catalog lists every supported format in declaration order.
var catalog = []core.Format{
	core.FormatTar,
	core.FormatZip,
	core.FormatJar,
	core.FormatGzip,
	core.FormatTarGzip,
	core.FormatLegacyZ,
}

// bySuffix is catalog ordered by descending extension length so that
// "tar.gz" is tried before "gz".
var bySuffix = func() []core.Format {
	s := slices.Clone(catalog)
	slices.SortStableFunc(s, func(a, b core.Format) int {
		return len(b.Extension()) - len(a.Extension())
	})
	return s
}()

// All returns every supported format.
func All() []core.Format {
	return slices.Clone(catalog)
}

// Extension returns the canonical extension of f without a leading dot.
func Extension(f core.Format) string {
	return f.Extension()
}

// ClassOf returns the classification of f.
func ClassOf(f core.Format) core.Class {
	return f.Class()
}

// FromName infers a format from a file name suffix, case-insensitively,
// preferring the longest matching extension.
func FromName(name string) (core.Format, bool) {
	lower := strings.ToLower(name)
	for _, f := range bySuffix {
		if strings.HasSuffix(lower, "."+f.Extension()) {
			return f, true
		}
	}
	return core.FormatUnspecified, false
}

// FileName appends the format's extension to base.
func FileName(base string, f core.Format) string {
	return base + "." + f.Extension()
}

// TrimExtension strips the format's extension from name when present,
// case-insensitively. Names without the suffix are returned unchanged.
func TrimExtension(name string, f core.Format) string {
	ext := "." + f.Extension()
	if len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
		return name[:len(name)-len(ext)]
	}
	return name
}

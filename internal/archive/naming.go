package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meigma/parcel/core"
)

// entryName computes the archive entry name for file.
//
// Precedence: PreserveAbsolutePath, then IgnoreParentsDirectory (only when a
// base is known), then IgnoreTreeStructure, then the default of naming the
// file relative to the parent of base. Without a base the default is the
// file's base name. The result uses forward slashes.
func entryName(file, base, prefix string, opts core.PackOptions) (string, error) {
	var (
		name string
		err  error
	)
	switch {
	case opts.PreserveAbsolutePath:
		name, err = filepath.Abs(file)
	case opts.IgnoreParentsDirectory && base != "":
		name, err = relative(base, file)
	case opts.IgnoreTreeStructure:
		name = filepath.Base(file)
	case base == "":
		name = filepath.Base(file)
	default:
		name, err = relative(filepath.Dir(base), file)
	}
	if err != nil {
		return "", fmt.Errorf("name entry for %s: %w", file, err)
	}
	return prefix + filepath.ToSlash(name), nil
}

// relative returns file relative to dir. Both are made absolute first so
// that relative and absolute inputs can be mixed.
func relative(dir, file string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absDir, absFile)
}

// normalizePrefix converts prefix to a relative forward-slash path ending in
// exactly one separator. An empty prefix stays empty.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	p := strings.Trim(filepath.ToSlash(prefix), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

package core

import (
	"fmt"
	"strings"
)

// Format identifies an archive or compression format.
type Format int

// Supported formats. The zero value means the format should be inferred.
const (
	FormatUnspecified Format = iota
	FormatTar
	FormatZip
	FormatJar
	FormatGzip
	FormatTarGzip
	FormatLegacyZ
)

// Class separates entry-oriented containers from formats that compress a
// single byte stream.
type Class int

const (
	// ClassContainer formats hold an ordered sequence of named entries.
	ClassContainer Class = iota + 1
	// ClassSingleStream formats compress exactly one byte stream.
	ClassSingleStream
)

func (c Class) String() string {
	switch c {
	case ClassContainer:
		return "container"
	case ClassSingleStream:
		return "single-stream"
	default:
		return "unknown"
	}
}

// String returns the format's short name.
func (f Format) String() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	case FormatJar:
		return "jar"
	case FormatGzip:
		return "gzip"
	case FormatTarGzip:
		return "tar+gzip"
	case FormatLegacyZ:
		return "legacy-z"
	case FormatUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the canonical file extension without a leading dot.
// The values are stable: "tar", "zip", "jar", "gz", "tar.gz" and "z".
func (f Format) Extension() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	case FormatJar:
		return "jar"
	case FormatGzip:
		return "gz"
	case FormatTarGzip:
		return "tar.gz"
	case FormatLegacyZ:
		return "z"
	default:
		return ""
	}
}

// Class returns the format's classification. TarGzip is a container: it is
// a tar stream wrapped in gzip.
func (f Format) Class() Class {
	switch f {
	case FormatTar, FormatZip, FormatJar, FormatTarGzip:
		return ClassContainer
	case FormatGzip, FormatLegacyZ:
		return ClassSingleStream
	default:
		return 0
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f >= FormatTar && f <= FormatLegacyZ
}

// ParseFormat parses a format name or extension, case-insensitively.
// A leading dot is ignored.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "tar":
		return FormatTar, nil
	case "zip":
		return FormatZip, nil
	case "jar":
		return FormatJar, nil
	case "gz", "gzip":
		return FormatGzip, nil
	case "tar.gz", "tgz", "targz", "tar+gzip":
		return FormatTarGzip, nil
	case "z", "legacy-z", "lzw":
		return FormatLegacyZ, nil
	default:
		return FormatUnspecified, fmt.Errorf("%w: unknown format %q", ErrUsage, s)
	}
}

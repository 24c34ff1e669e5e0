// Package core provides the shared types and sentinel errors for parcel.
//
// This package exists to break import cycles between the root parcel package
// and internal implementation packages. The parcel package re-exports all
// public types from this package, so external users should import parcel
// directly, not parcel/core.
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Sentinel errors for common failure conditions.
var (
	// ErrUsage indicates an invalid or incomplete request.
	ErrUsage = errors.New("parcel: invalid usage")

	// ErrNotDetected indicates the archive format could not be determined.
	// Errors wrapping ErrNotDetected also match ErrUsage.
	ErrNotDetected = fmt.Errorf("%w: format not detected", ErrUsage)

	// ErrFormat indicates the format cannot structurally hold the given source,
	// such as a directory or several files packed into gzip.
	ErrFormat = errors.New("parcel: unsupported source for format")

	// ErrTimeout indicates an external command exceeded its deadline.
	ErrTimeout = errors.New("parcel: command timed out")

	// ErrCommandFailed indicates an external command exited unsuccessfully.
	ErrCommandFailed = errors.New("parcel: command failed")
)

// CommandError describes an external command that exited with a non-zero
// status. It matches ErrCommandFailed with errors.Is.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Is reports whether target is ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// PackOptions controls entry naming when packing.
//
// When several naming flags are set, PreserveAbsolutePath wins over
// IgnoreParentsDirectory, which wins over IgnoreTreeStructure. With none set,
// entries are named relative to the parent of the base directory.
type PackOptions struct {
	// IgnoreTreeStructure names every entry by its base name only.
	IgnoreTreeStructure bool
	// IgnoreParentsDirectory names entries relative to the base directory
	// itself, dropping the base directory's own name.
	IgnoreParentsDirectory bool
	// PreserveAbsolutePath names entries by their absolute source path.
	PreserveAbsolutePath bool
}

// UnpackOptions controls extraction.
type UnpackOptions struct {
	// IgnoreTreeStructure extracts every file directly into the target
	// directory and skips directory entries.
	IgnoreTreeStructure bool
	// DeleteSource removes the source archive after a successful extraction.
	// A failed removal is logged and does not fail the operation.
	DeleteSource bool
}

// PackRequest describes a pack operation.
//
// Exactly one of Source and Files must be set. Files requires Base, which is
// used to relativize entry names. A directory Source is walked recursively for
// regular files and defaults Base to itself.
type PackRequest struct {
	Source string
	Files  []string
	Base   string

	// Prefix is prepended to every entry name.
	Prefix string

	// Target is the output path. When empty it is derived from the source
	// name plus the format extension, next to the source.
	Target string

	// Format is inferred from Target when unspecified.
	Format Format

	Options PackOptions

	// Timeout bounds the external command used for FormatLegacyZ.
	// Zero uses the client default.
	Timeout time.Duration
}

// UnpackRequest describes an unpack operation.
type UnpackRequest struct {
	// Source is the archive path. It must exist and must not be a directory.
	Source string

	// Target is the output directory. Defaults to the source's parent.
	// For single-stream formats a Target that is not an existing directory
	// is used as the exact output file path.
	Target string

	// Format is detected from the source when unspecified.
	Format Format

	Options UnpackOptions

	// Timeout bounds the external command used for FormatLegacyZ.
	// Zero uses the client default.
	Timeout time.Duration
}

// ProgressEvent reports bytes copied during pack or unpack.
type ProgressEvent struct {
	// Operation is "pack" or "unpack".
	Operation string
	// Entry is the entry or file currently being copied.
	Entry string
	// BytesTransferred is the cumulative number of bytes copied so far.
	BytesTransferred int64
	// TotalBytes is the expected total, or -1 when unknown.
	TotalBytes int64
}

// ProgressFunc receives progress events. It is called synchronously from the
// copying goroutine and should return quickly.
type ProgressFunc func(event ProgressEvent)

// Entry describes a file inside an archive.
type Entry struct {
	// Name is the slash-separated entry name as stored in the archive.
	Name string
	// Size is the uncompressed size in bytes, or -1 when unknown.
	Size int64
	// Mode holds the permission bits recorded for the entry.
	Mode fs.FileMode
}

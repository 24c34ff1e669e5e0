// Package contracts defines internal interfaces shared across parcel components.
// These interfaces are intentionally internal to avoid exposing implementation
// contracts as part of the public API.
package contracts

import (
	"context"
	"time"

	"github.com/meigma/parcel/core"
)

// Command describes one external process invocation.
type Command struct {
	// Args is the program followed by its arguments.
	Args []string
	// Output receives the process's stdout when non-empty. The file is
	// created or truncated.
	Output string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Timeout bounds the process lifetime. Zero means no deadline beyond
	// the context's own.
	Timeout time.Duration
}

// CommandRunner executes external commands synchronously.
//
// Implementations return an error matching core.ErrTimeout when the deadline
// expires and a *core.CommandError when the process exits non-zero.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// PathResolver maps archive entry names onto extraction paths.
type PathResolver interface {
	// Resolve returns the extraction path for name under root. escaped is
	// true when the name would have left root and was flattened instead.
	Resolve(root, name string, flatten bool) (path string, escaped bool)
}

// FormatDetector determines the format of a file on disk.
type FormatDetector interface {
	Detect(path string) (core.Format, error)
}

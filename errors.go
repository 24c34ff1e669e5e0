package parcel

import "github.com/meigma/parcel/core"

// Sentinel errors for common failure conditions.
// Re-exported from core package.
var (
	// ErrUsage indicates an invalid or incomplete request.
	ErrUsage = core.ErrUsage

	// ErrNotDetected indicates the format could not be detected or inferred.
	// It also matches ErrUsage.
	ErrNotDetected = core.ErrNotDetected

	// ErrFormat indicates the format cannot hold the given source, such as a
	// directory or several files packed into gzip.
	ErrFormat = core.ErrFormat

	// ErrTimeout indicates an external command exceeded its deadline.
	ErrTimeout = core.ErrTimeout

	// ErrCommandFailed indicates an external command exited unsuccessfully.
	ErrCommandFailed = core.ErrCommandFailed
)

// CommandError carries the exit status and stderr of a failed external
// command. Re-exported from core package.
type CommandError = core.CommandError

package parcel

import "github.com/meigma/parcel/core"

// ProgressEvent represents a progress update during pack/unpack operations.
// Re-exported from core package.
type ProgressEvent = core.ProgressEvent

// ProgressFunc is called while file content is copied to report progress.
// Implementations should be efficient as this may be called frequently.
type ProgressFunc = core.ProgressFunc

package parcel

import "github.com/meigma/parcel/core"

// Format identifies an archive or compression format.
// Re-exported from core package.
type Format = core.Format

// Class separates container formats from single-stream formats.
type Class = core.Class

// Supported formats. FormatUnspecified asks the engine to infer the format.
const (
	FormatUnspecified = core.FormatUnspecified
	FormatTar         = core.FormatTar
	FormatZip         = core.FormatZip
	FormatJar         = core.FormatJar
	FormatGzip        = core.FormatGzip
	FormatTarGzip     = core.FormatTarGzip
	FormatLegacyZ     = core.FormatLegacyZ
)

// Format classes.
const (
	ClassContainer    = core.ClassContainer
	ClassSingleStream = core.ClassSingleStream
)

// PackRequest describes a pack operation.
type PackRequest = core.PackRequest

// PackOptions controls entry naming when packing.
type PackOptions = core.PackOptions

// UnpackRequest describes an unpack operation.
type UnpackRequest = core.UnpackRequest

// UnpackOptions controls extraction.
type UnpackOptions = core.UnpackOptions

// Entry describes a file inside an archive.
type Entry = core.Entry

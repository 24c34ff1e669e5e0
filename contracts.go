package parcel

import (
	"context"

	"github.com/meigma/parcel/core"
	"github.com/meigma/parcel/internal/contracts"
)

// CommandRunner executes the external compress and uncompress tools.
// Re-exported from the internal contracts package so callers can substitute
// their own runner with WithCommandRunner.
type CommandRunner = contracts.CommandRunner

// Command describes one external process invocation.
type Command = contracts.Command

type packer interface {
	Pack(ctx context.Context, req core.PackRequest) (string, error)
}

type extractor interface {
	Unpack(ctx context.Context, req core.UnpackRequest) ([]string, error)
	Preview(ctx context.Context, source string, f core.Format) ([]string, error)
	List(ctx context.Context, source string, f core.Format) ([]core.Entry, error)
}

type detector interface {
	Detect(path string) (core.Format, error)
}

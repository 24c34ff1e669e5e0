// Package archive implements the pack and unpack engines for every format in
// the catalog.
package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

const (
	copyBufferSize = 128 * 1024

	// ioBufferSize sizes the buffered file readers and writers that sit
	// under archive and compressor streams.
	ioBufferSize = 32 * 1024

	// dirPerm is used for directories created during extraction or for a
	// missing target parent.
	dirPerm = 0o750

	// defaultFilePerm is used when an entry carries no permission bits.
	defaultFilePerm = 0o644
)

// copyWithContext copies from src to dst while honoring context cancellation.
// It checks context every 128KB to balance responsiveness with performance.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) error {
	if len(buf) < copyBufferSize {
		buf = make([]byte, copyBufferSize)
	}
	buf = buf[:copyBufferSize]
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

// closeAll closes each closer in order and returns the first error.
// Every closer runs even when an earlier one fails.
func closeAll(closers ...func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
